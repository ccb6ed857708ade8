package middleware

// 与 web 包保持一致的业务错误码
const (
	codeUnauthorized  = 40002
	codeForbidden     = 40003
	codeRateLimited   = 40029
	codeInternalError = 50000
)

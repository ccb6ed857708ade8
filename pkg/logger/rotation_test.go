package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TestNewRotationWriter 测试创建轮换 writer
func TestNewRotationWriter(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "ai.log")

	tests := []struct {
		name    string
		config  *RotationConfig
		wantErr bool
	}{
		{"size rotation", &RotationConfig{Type: RotationBySize, MaxSize: 100, MaxBackups: 5}, false},
		{"time rotation", &RotationConfig{Type: RotationByTime, RotationTime: "1h", MaxAgeTime: "24h"}, false},
		{"bad durations fall back", &RotationConfig{Type: RotationByTime, RotationTime: "x", MaxAgeTime: "y"}, false},
		{"empty type means size", &RotationConfig{}, false},
		{"unknown type", &RotationConfig{Type: "weekly"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewRotationWriter(tt.config, outputPath)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, w)
		})
	}
}

// TestSizeRotationWriterWrite 测试按大小轮换的写入
func TestSizeRotationWriterWrite(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "size.log")

	w, err := NewRotationWriter(&RotationConfig{Type: RotationBySize, MaxSize: 1}, outputPath)
	require.NoError(t, err)

	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	defer lj.Close()

	_, err = w.Write([]byte("monster spawned\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "monster spawned\n", string(data))
}

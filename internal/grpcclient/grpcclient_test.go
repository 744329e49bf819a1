package grpcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPoolSize(t *testing.T) {
	assert.Equal(t, 16, clampPoolSize(0))
	assert.Equal(t, 16, clampPoolSize(64))
	assert.Equal(t, 20, clampPoolSize(160))
	assert.Equal(t, 64, clampPoolSize(10000))
}

func TestSplitFullMethod(t *testing.T) {
	svc, method, err := splitFullMethod("echo.EchoService/Echo")
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal("echo.EchoService", svc)
	assert.Equal("Echo", method)

	svc, method, err = splitFullMethod("/echo.EchoService/Echo")
	assert.NoError(err)
	assert.Equal("echo.EchoService", svc)
	assert.Equal("Echo", method)

	_, _, err = splitFullMethod("malformed")
	assert.Error(err)
}

//go:build !tinygo

package main

import (
	"testing"

	"capsule/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestAppConfigHello(t *testing.T) {
	tests := []struct {
		flag string
		want []string
	}{
		{flag: "alpha,beta", want: []string{"alpha", "beta"}},
		{flag: " a , ,b ", want: []string{"a", "b"}},
		{flag: "", want: []string{}},
		{flag: " , ", want: []string{}},
	}
	for _, tt := range tests {
		ac := appConfig(config.Default(), tt.flag, 1, false)
		assert.NotNil(t, ac.Hello, "hello %q", tt.flag)
		assert.Equal(t, tt.want, ac.Hello, "hello %q", tt.flag)
	}
}

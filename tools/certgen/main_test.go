package main

import (
	"crypto/tls"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSplitHosts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"localhost", []string{"localhost"}},
		{" localhost , 127.0.0.1,,", []string{"localhost", "127.0.0.1"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := splitHosts(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitHosts(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestRun_WritesKeyPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	if err := run([]string{"-dir", dir, "-hosts", "localhost"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := tls.LoadX509KeyPair(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key")); err != nil {
		t.Errorf("generated files are not a key pair: %v", err)
	}
}

func TestRun_NoHosts(t *testing.T) {
	if err := run([]string{"-dir", t.TempDir(), "-hosts", " , "}); err == nil {
		t.Fatal("expected error when no hosts are given")
	}
}

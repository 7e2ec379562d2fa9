package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/midgard-gltf/internal/asset/assettest"
)

func writeAsset(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.gltf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTriangle(t *testing.T) {
	path := writeAsset(t, assettest.Triangle(assettest.Options{}))
	if err := cmdLoad([]string{"-frames", "5", path}); err != nil {
		t.Errorf("load: %v", err)
	}
}

func TestLoadFailuresReturnErrors(t *testing.T) {
	bad := assettest.Edit(assettest.Triangle(assettest.Options{}), func(doc map[string]any) {
		assettest.Path(doc, "meshes", 0, "primitives", 0)["material"] = 7
	})
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no file", nil, "usage"},
		{"bad flag", []string{"-nope"}, "nope"},
		{"malformed asset", []string{"-frames", "5", writeAsset(t, bad)}, "failed to load"},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "x.gltf"}, "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cmdLoad(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("load error = %v, want one mentioning %q", err, tt.want)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	if err := cmdInfo(nil); err == nil {
		t.Error("info without a file should fail")
	}
	if err := cmdInfo([]string{filepath.Join(t.TempDir(), "missing.gltf")}); err == nil {
		t.Error("info on a missing file should fail")
	}
	if err := cmdInfo([]string{writeAsset(t, assettest.Triangle(assettest.Options{}))}); err != nil {
		t.Errorf("info: %v", err)
	}
}

package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestParseVec3(t *testing.T) {
	tests := []struct {
		in      string
		want    mgl64.Vec3
		wantErr bool
	}{
		{"0,812,0", mgl64.Vec3{0, 812, 0}, false},
		{" 1.5, -2 ,3e2", mgl64.Vec3{1.5, -2, 300}, false},
		{"1,2", mgl64.Vec3{}, true},
		{"1,2,3,4", mgl64.Vec3{}, true},
		{"a,2,3", mgl64.Vec3{}, true},
		{"", mgl64.Vec3{}, true},
	}

	for _, tt := range tests {
		got, err := parseVec3(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVec3(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVec3(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

package storage

import "testing"

func TestBuildMediaPath(t *testing.T) {
	path, err := BuildMediaPath("order-photos", "image", "upl_01H", "kid.png")
	if err != nil {
		t.Fatalf("BuildMediaPath returned error: %v", err)
	}
	expected := "uploads/order-photos/image/upl_01H/kid.png"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildMediaPathRejectsTraversal(t *testing.T) {
	cases := []struct {
		name   string
		folder string
		file   string
	}{
		{name: "folder traversal", folder: "../bad", file: "kid.png"},
		{name: "folder separator", folder: "a/b", file: "kid.png"},
		{name: "file traversal", folder: "order-photos", file: "..\\evil.png"},
		{name: "empty file", folder: "order-photos", file: " "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildMediaPath(tc.folder, "image", "upl_01H", tc.file); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

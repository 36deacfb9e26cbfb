package storage

import "testing"

func TestProductImagePath(t *testing.T) {
	got, err := ProductImagePath("prd_1", "01HZY", "Front View.JPG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "products/prd_1/images/01HZY.jpg" {
		t.Fatalf("unexpected path %s", got)
	}
}

func TestProductImagePathRejectsTraversal(t *testing.T) {
	cases := []struct{ product, upload, file string }{
		{"", "u", "a.png"},
		{"../etc", "u", "a.png"},
		{"p", "u/v", "a.png"},
		{"p", "u", "..\\a.png"},
		{"p", "u", " "},
	}
	for _, tc := range cases {
		if _, err := ProductImagePath(tc.product, tc.upload, tc.file); err == nil {
			t.Fatalf("expected error for %+v", tc)
		}
	}
}

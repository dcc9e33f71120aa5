package domain

import (
	"errors"
	"testing"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	cases := []struct {
		value string
		want  Role
	}{
		{"reader", RoleReader},
		{"AUTHOR", RoleAuthor},
		{" editor ", RoleEditor},
		{"admin", RoleAdmin},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.value)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", tc.value, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRole(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}

	if _, err := ParseRole("owner"); !errors.Is(err, apperrors.New(apperrors.CodeUserInvalidRole, "")) {
		t.Fatalf("expected invalid role error, got %v", err)
	}
}

func TestRoleOrdering(t *testing.T) {
	t.Parallel()

	if RoleReader.CanAuthor() {
		t.Fatal("reader should not author")
	}
	if !RoleAuthor.CanAuthor() {
		t.Fatal("author should author")
	}
	if RoleAuthor.CanModerate() {
		t.Fatal("author should not moderate")
	}
	if !RoleEditor.CanModerate() {
		t.Fatal("editor should moderate")
	}
	if RoleEditor.CanAdminister() {
		t.Fatal("editor should not administer")
	}
	if !RoleAdmin.CanAdminister() {
		t.Fatal("admin should administer")
	}
}

func TestUserValidate(t *testing.T) {
	t.Parallel()

	valid := User{Email: "ana@example.com", DisplayName: "Ana", Role: RoleAuthor}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}

	noEmail := valid
	noEmail.Email = "  "
	if err := noEmail.Validate(); !errors.Is(err, apperrors.New(apperrors.CodeUserEmailEmpty, "")) {
		t.Fatalf("expected email error, got %v", err)
	}

	noName := valid
	noName.DisplayName = ""
	if err := noName.Validate(); !errors.Is(err, apperrors.New(apperrors.CodeUserEmptyDisplayName, "")) {
		t.Fatalf("expected display name error, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	if got := NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("normalize = %q", got)
	}
}

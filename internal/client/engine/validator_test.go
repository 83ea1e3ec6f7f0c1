package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSiteName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "my-page", true},
		{"mixed case", "MyPage42", true},
		{"single char", "a", true},
		{"max length", strings.Repeat("a", 63), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 64), false},
		{"underscore", "my_page", false},
		{"leading hyphen", "-page", false},
		{"trailing hyphen", "page-", false},
		{"consecutive hyphens", "my--page", false},
		{"reserved exact", "login", false},
		{"reserved exact case-insensitive", "Login", false},
		{"reserved contains", "admin", false},
		{"reserved contained anywhere", "my-admin-page", false},
		{"reserved word embedded", "rootbeer", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateSiteName(tt.input)
			assert.Equal(t, tt.valid, res.Valid, res.Error)
			assert.Equal(t, NameTypeSite, res.Type)
			if !tt.valid {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestValidateFolderName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "blog", true},
		{"with digits and separators", "my_blog-2", true},
		{"empty", "", false},
		{"uppercase", "Blog", false},
		{"spaces", "my blog", false},
		{"too long", strings.Repeat("a", 256), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateFolderName(tt.input)
			assert.Equal(t, tt.valid, res.Valid, res.Error)
			assert.Equal(t, NameTypeFolder, res.Type)
		})
	}
}

func TestValidateSitePath(t *testing.T) {
	t.Run("flat site", func(t *testing.T) {
		assert.True(t, ValidateSitePath("page.html").Valid)
	})

	t.Run("nested site", func(t *testing.T) {
		assert.True(t, ValidateSitePath("blog/posts/hello.html").Valid)
	})

	t.Run("missing html suffix", func(t *testing.T) {
		assert.False(t, ValidateSitePath("page.txt").Valid)
	})

	t.Run("depth limit", func(t *testing.T) {
		assert.True(t, ValidateSitePath("a/b/c/d/e/page.html").Valid)
		assert.False(t, ValidateSitePath("a/b/c/d/e/f/page.html").Valid)
	})

	t.Run("error names the offending segment", func(t *testing.T) {
		res := ValidateSitePath("blog/BAD/page.html")
		assert.False(t, res.Valid)
		assert.Equal(t, NameTypeFolder, res.Type)
		assert.Contains(t, res.Error, "BAD")
	})

	t.Run("reserved leaf", func(t *testing.T) {
		res := ValidateSitePath("blog/admin.html")
		assert.False(t, res.Valid)
		assert.Equal(t, NameTypeSite, res.Type)
	})
}

func TestValidateUploadName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "logo.png", true},
		{"spaces ok", "my logo.png", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 252) + ".png", false},
		{"leading dot", ".hidden", false},
		{"trailing dot", "file.", false},
		{"slash", "a/b.png", false},
		{"backslash", `a\b.png`, false},
		{"angle bracket", "a<b.png", false},
		{"pipe", "a|b.png", false},
		{"question mark", "a?.png", false},
		{"control char", "a\x07b.png", false},
		{"windows reserved", "CON", false},
		{"windows reserved with ext", "con.txt", false},
		{"windows reserved lpt", "lpt3.dat", false},
		{"fullwidth star", "a＊b.png", false},
		{"fullwidth slash", "a／b.png", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateUploadName(tt.input)
			assert.Equal(t, tt.valid, res.Valid, res.Error)
			assert.Equal(t, NameTypeUpload, res.Type)
		})
	}
}

package engine

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// NameType tells the caller which rule set rejected a name.
type NameType string

const (
	NameTypeSite   NameType = "site"
	NameTypeFolder NameType = "folder"
	NameTypeUpload NameType = "upload"
)

// ValidationResult mirrors the server's pre-flight name checks. Rejecting
// locally saves a round-trip that would fail anyway.
type ValidationResult struct {
	Valid bool
	Error string
	Type  NameType
}

const (
	maxSiteNameLen   = 63
	maxFolderLen     = 255
	maxUploadNameLen = 255
	maxFolderDepth   = 5
)

var (
	folderSegmentRe = regexp.MustCompile(`^[a-z0-9_-]+$`)
	siteNameRe      = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

func valid(t NameType) ValidationResult {
	return ValidationResult{Valid: true, Type: t}
}

func invalid(t NameType, format string, args ...any) ValidationResult {
	return ValidationResult{Valid: false, Type: t, Error: fmt.Sprintf(format, args...)}
}

// ValidateSiteName checks the ".html"-stripped leaf of a site path.
func ValidateSiteName(name string) ValidationResult {
	if name == "" {
		return invalid(NameTypeSite, "site name is empty")
	}
	if len(name) > maxSiteNameLen {
		return invalid(NameTypeSite, "site name %q exceeds %d characters", name, maxSiteNameLen)
	}
	if !siteNameRe.MatchString(name) {
		return invalid(NameTypeSite, "site name %q may only contain letters, digits and hyphens", name)
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return invalid(NameTypeSite, "site name %q may not start or end with a hyphen", name)
	}
	if strings.Contains(name, "--") {
		return invalid(NameTypeSite, "site name %q may not contain consecutive hyphens", name)
	}

	lower := strings.ToLower(name)
	if reservedExact.Contains(lower) {
		return invalid(NameTypeSite, "site name %q is reserved", name)
	}
	for word := range reservedAnywhere.Iter() {
		if strings.Contains(lower, word) {
			return invalid(NameTypeSite, "site name %q contains reserved word %q", name, word)
		}
	}

	return valid(NameTypeSite)
}

// ValidateFolderName checks one folder segment of a site path.
func ValidateFolderName(segment string) ValidationResult {
	if segment == "" {
		return invalid(NameTypeFolder, "folder name is empty")
	}
	if len(segment) > maxFolderLen {
		return invalid(NameTypeFolder, "folder name %q exceeds %d characters", segment, maxFolderLen)
	}
	if !folderSegmentRe.MatchString(segment) {
		return invalid(NameTypeFolder, "folder name %q may only contain lowercase letters, digits, hyphens and underscores", segment)
	}
	return valid(NameTypeFolder)
}

// ValidateSitePath checks a full forward-slash relative path (with ".html").
// Each folder segment and the leaf are validated independently; the error
// names the offending segment.
func ValidateSitePath(relPath string) ValidationResult {
	if !strings.HasSuffix(relPath, HTMLExt) {
		return invalid(NameTypeSite, "path %q does not end in %s", relPath, HTMLExt)
	}

	segments := strings.Split(SiteName(relPath), "/")
	folders := segments[:len(segments)-1]
	leaf := segments[len(segments)-1]

	if len(folders) > maxFolderDepth {
		return invalid(NameTypeFolder, "path %q exceeds %d folder levels", relPath, maxFolderDepth)
	}

	for _, seg := range folders {
		if res := ValidateFolderName(seg); !res.Valid {
			return res
		}
	}

	return ValidateSiteName(leaf)
}

// ValidateUploadName checks a non-HTML asset name against the server's
// sanitizer. Uploads do not sync yet; the rules are enforced so queued
// names stay portable.
func ValidateUploadName(name string) ValidationResult {
	if name == "" {
		return invalid(NameTypeUpload, "upload name is empty")
	}
	if len(name) > maxUploadNameLen {
		return invalid(NameTypeUpload, "upload name %q exceeds %d bytes", name, maxUploadNameLen)
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return invalid(NameTypeUpload, "upload name %q may not start or end with a dot", name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return invalid(NameTypeUpload, "upload name %q contains control characters", name)
		}
		if strings.ContainsRune(`/\<>:"|?*`, r) {
			return invalid(NameTypeUpload, "upload name %q contains forbidden character %q", name, r)
		}
		// full-width forms get sanitized server-side, reject them up front
		if strings.ContainsRune("／＼＜＞：＂｜？＊", r) {
			return invalid(NameTypeUpload, "upload name %q contains full-width punctuation %q", name, r)
		}
	}

	stem := name
	if i := strings.IndexByte(name, '.'); i > 0 {
		stem = name[:i]
	}
	if windowsReserved.Contains(strings.ToUpper(stem)) {
		return invalid(NameTypeUpload, "upload name %q is a reserved device name", name)
	}

	return valid(NameTypeUpload)
}

// Package validation normalizes and structurally validates submitted comment
// fields. Nothing in this package performs I/O.
package validation

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"

	"claim-comments/internal/domain"
)

const maxChannelNameLength = 255

var (
	claimIDPattern   = regexp.MustCompile(`^[0-9a-f]{40}$`)
	commentIDPattern = regexp.MustCompile(`^[a-z0-9]{1,64}$`)
	signingTSPattern = regexp.MustCompile(`^[0-9]{1,20}$`)
)

// identifierFields are lower-cased during normalization.
var identifierFields = map[string]bool{
	"claim_id":   true,
	"parent_id":  true,
	"comment_id": true,
	"channel_id": true,
}

// Normalize trims every string value and lower-cases identifier fields.
// Non-string values pass through unchanged. The input map is not modified.
func Normalize(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		s = strings.TrimSpace(s)
		if identifierFields[k] {
			s = strings.ToLower(s)
		}
		out[k] = s
	}
	return out
}

// NormalizeInput applies Normalize to a typed create request in place.
// Optional fields that are blank after trimming become nil.
func NormalizeInput(in *domain.CreateCommentInput) {
	in.ClaimID = strings.ToLower(strings.TrimSpace(in.ClaimID))
	in.Comment = strings.TrimSpace(in.Comment)
	in.ParentID = normalizeOptional(in.ParentID, true)
	in.ChannelID = normalizeOptional(in.ChannelID, true)
	in.ChannelName = normalizeOptional(in.ChannelName, false)
	in.Signature = normalizeOptional(in.Signature, false)
	in.SigningTS = normalizeOptional(in.SigningTS, false)
}

func normalizeOptional(s *string, identifier bool) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	if identifier {
		v = strings.ToLower(v)
	}
	return &v
}

// ValidateComment checks the structure of a normalized create request.
func ValidateComment(in *domain.CreateCommentInput) error {
	if err := ValidateBody(in.Comment); err != nil {
		return err
	}
	if err := ValidateClaimID(in.ClaimID); err != nil {
		return err
	}
	if in.ParentID != nil && !commentIDPattern.MatchString(*in.ParentID) {
		return domain.NewValidationError("parent_id", "must be a comment id")
	}
	if !in.HasChannel() {
		if in.Signature != nil || in.SigningTS != nil {
			return domain.NewValidationError("signature", "signature requires a channel")
		}
		return nil
	}
	if in.ChannelID == nil || in.ChannelName == nil {
		return domain.NewValidationError("channel_id", "channel_id and channel_name must be given together")
	}
	if err := ValidateChannel(*in.ChannelID, *in.ChannelName); err != nil {
		return err
	}
	if in.Signature == nil || in.SigningTS == nil {
		return domain.NewValidationError("signature", "signature and signing_ts are required for channel comments")
	}
	if err := ValidateSignatureHex(*in.Signature); err != nil {
		return err
	}
	if !signingTSPattern.MatchString(*in.SigningTS) {
		return domain.NewValidationError("signing_ts", "must be a decimal timestamp")
	}
	return nil
}

func ValidateBody(body string) error {
	n := utf8.RuneCountInString(body)
	if n == 0 {
		return domain.NewValidationError("comment", "must not be empty")
	}
	if n > domain.MaxCommentLength {
		return domain.NewValidationError("comment", "must be at most 2000 characters")
	}
	if !utf8.ValidString(body) {
		return domain.NewValidationError("comment", "must be valid UTF-8")
	}
	return nil
}

func ValidateClaimID(claimID string) error {
	if !claimIDPattern.MatchString(claimID) {
		return domain.NewValidationError("claim_id", "must be 40 lowercase hex characters")
	}
	return nil
}

func ValidateCommentID(commentID string) error {
	if !commentIDPattern.MatchString(commentID) {
		return domain.NewValidationError("comment_id", "must be a comment id")
	}
	return nil
}

// ValidateChannel checks a channel id and an @-prefixed channel name.
func ValidateChannel(channelID, channelName string) error {
	if !claimIDPattern.MatchString(channelID) {
		return domain.NewValidationError("channel_id", "must be 40 lowercase hex characters")
	}
	if !ChannelNameValid(channelName) {
		return domain.NewValidationError("channel_name", "is not a valid channel name")
	}
	return nil
}

// ChannelNameValid reports whether name is '@' followed by 1-255 printable
// characters, none of them reserved in claim locators.
func ChannelNameValid(name string) bool {
	if !utf8.ValidString(name) || !strings.HasPrefix(name, "@") {
		return false
	}
	rest := name[1:]
	n := 0
	for _, r := range rest {
		if forbiddenNameRune(r) {
			return false
		}
		n++
	}
	return n >= 1 && n <= maxChannelNameLength
}

func forbiddenNameRune(r rune) bool {
	switch {
	case r < 0x20 && r != '\t' && r != '\r':
		// newline is excluded along with the other C0 controls
		return true
	case r >= 0x23 && r <= 0x26, r == '/', r == ':', r == '=', r == '?', r == '@':
		return true
	case r == 0xFFFE || r == 0xFFFF:
		return true
	case r >= 0xD800 && r <= 0xDFFF:
		return true
	}
	return false
}

// ValidateSignatureHex requires a non-empty, even length hex string.
func ValidateSignatureHex(sig string) error {
	if sig == "" || len(sig)%2 != 0 {
		return domain.NewValidationError("signature", "must be an even length hex string")
	}
	if _, err := hex.DecodeString(sig); err != nil {
		return domain.NewValidationError("signature", "must be an even length hex string")
	}
	return nil
}

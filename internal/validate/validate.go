// Package validate holds the per-field checks every transition runs before
// touching the store.
package validate

import "github.com/xuxxeth/sx/internal/ir"

// Username checks 1 <= len(username) <= 32 bytes.
func Username(username string) error {
	return bounded(username, "username", ir.MaxUsernameLen, ir.CodeInvalidUsername)
}

// DisplayName checks 1 <= len(name) <= 48 bytes.
func DisplayName(name string) error {
	return bounded(name, "display name", ir.MaxDisplayNameLen, ir.CodeInvalidDisplayName)
}

// CID checks a content pointer: 1 <= len(cid) <= 128 bytes.
func CID(cid string) error {
	return bounded(cid, "cid", ir.MaxCIDLen, ir.CodeInvalidCid)
}

// Topic checks 1 <= len(topic) <= 32 bytes.
func Topic(topic string) error {
	return bounded(topic, "topic", ir.MaxTopicLen, ir.CodeInvalidTopic)
}

// Profile checks every field a profile write carries, in declaration order.
func Profile(displayName, bioCID, avatarCID string) error {
	if err := DisplayName(displayName); err != nil {
		return err
	}
	if err := CID(bioCID); err != nil {
		return err
	}
	return CID(avatarCID)
}

// Lengths are byte lengths, not rune counts.
func bounded(s, field string, max int, code ir.ErrorCode) error {
	if len(s) == 0 || len(s) > max {
		return ir.NewFieldError(code, field, len(s), max)
	}
	return nil
}

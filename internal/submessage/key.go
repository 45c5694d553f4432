package submessage

import (
	"strconv"
	"strings"
)

// CannedOwner is the owner token of options present in a poll's initial
// definition.
const CannedOwner = "canned"

// OptionKey names a poll option for its whole lifetime. A nil senderID
// means the option came from the initial definition and idx is its
// position there; otherwise idx is the per-sender sequence number carried
// by the new_option event that added it.
func OptionKey(senderID *int64, idx int) string {
	if senderID == nil {
		return CannedKey(idx)
	}
	return SenderKey(*senderID, idx)
}

// CannedKey is OptionKey for an initial option.
func CannedKey(idx int) string {
	return CannedOwner + "," + strconv.Itoa(idx)
}

// SenderKey is OptionKey for an option added by senderID.
func SenderKey(senderID int64, idx int) string {
	return strconv.FormatInt(senderID, 10) + "," + strconv.Itoa(idx)
}

// OptionKeyParts is a parsed option key.
type OptionKeyParts struct {
	Canned   bool
	SenderID int64
	Idx      int
}

func (p OptionKeyParts) String() string {
	if p.Canned {
		return CannedKey(p.Idx)
	}
	return SenderKey(p.SenderID, p.Idx)
}

// ParseOptionKey validates key against the `<owner>,<index>` grammar. The
// key is split on its first comma; the owner must be CannedOwner or a
// non-negative decimal sender id and the index a non-negative decimal.
func ParseOptionKey(key string) (OptionKeyParts, error) {
	owner, index, found := strings.Cut(key, ",")
	if !found {
		return OptionKeyParts{}, &KeyShapeError{Key: key, Reason: "missing comma"}
	}

	var parts OptionKeyParts
	if owner == CannedOwner {
		parts.Canned = true
	} else {
		id, ok := parseDecimal(owner, 63)
		if !ok {
			return OptionKeyParts{}, &KeyShapeError{Key: key, Reason: "owner is neither " + CannedOwner + " nor a sender id"}
		}
		parts.SenderID = id
	}

	idx, ok := parseDecimal(index, strconv.IntSize-1)
	if !ok {
		return OptionKeyParts{}, &KeyShapeError{Key: key, Reason: "index is not a non-negative integer"}
	}
	parts.Idx = int(idx)
	return parts, nil
}

// parseDecimal accepts only ASCII digits, so signs and spaces are rejected.
func parseDecimal(s string, bits int) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, false
	}
	return int64(n), true
}

// VoteOp is the direction of a vote change. The wire carries it as an
// integer; values other than 1 and -1 decode to VoteUnrecognized.
type VoteOp int

const (
	VoteUnrecognized VoteOp = 0
	VoteAdd          VoteOp = 1
	VoteRemove       VoteOp = -1
)

func voteOpFromNumber(v float64) VoteOp {
	switch v {
	case 1:
		return VoteAdd
	case -1:
		return VoteRemove
	default:
		return VoteUnrecognized
	}
}

func (op VoteOp) String() string {
	switch op {
	case VoteAdd:
		return "add"
	case VoteRemove:
		return "remove"
	default:
		return "unrecognized"
	}
}

// wireValue is nil for VoteUnrecognized, which has no canonical integer.
func (op VoteOp) wireValue() *int {
	switch op {
	case VoteAdd, VoteRemove:
		v := int(op)
		return &v
	default:
		return nil
	}
}

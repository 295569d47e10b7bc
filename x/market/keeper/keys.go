package keeper

import (
	"encoding/binary"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/cosmos-sdk/types/address"
)

var (
	// ParamsKey is the key for module parameters
	ParamsKey = []byte{0x01}

	// HostKeyPrefix is the prefix for host records
	HostKeyPrefix = []byte{0x02}

	// ActiveHostsPrefix indexes the active host set
	ActiveHostsPrefix = []byte{0x03}

	// HostsByModelPrefix indexes active hosts per model id
	HostsByModelPrefix = []byte{0x04}

	// SessionKeyPrefix is the prefix for session records
	SessionKeyPrefix = []byte{0x05}

	// NextSessionIDKey is the key for the session id counter
	NextSessionIDKey = []byte{0x06}

	// SessionsByDepositorPrefix indexes sessions by depositor
	SessionsByDepositorPrefix = []byte{0x07}

	// SessionsByHostPrefix indexes sessions by host
	SessionsByHostPrefix = []byte{0x08}

	// SessionDeadlinePrefix indexes active sessions by deadline for expiry sweeps
	SessionDeadlinePrefix = []byte{0x09}

	// ProofRecordKeyPrefix stores per-hash proof verdicts (replay prevention)
	ProofRecordKeyPrefix = []byte{0x0A}

	// ChallengeKeyPrefix is the prefix for challenge records
	ChallengeKeyPrefix = []byte{0x0B}

	// NextChallengeIDKey is the key for the challenge id counter
	NextChallengeIDKey = []byte{0x0C}

	// ChallengeDeadlinePrefix indexes pending challenges by deadline
	ChallengeDeadlinePrefix = []byte{0x0D}

	// ChallengeByProofPrefix maps a proof hash to its pending challenge id
	ChallengeByProofPrefix = []byte{0x0E}

	// EarningsKeyPrefix stores per (host, denom) withdrawable balances
	EarningsKeyPrefix = []byte{0x0F}

	// SlashRecordKeyPrefix is the prefix for slash audit records
	SlashRecordKeyPrefix = []byte{0x10}

	// NextSlashIDKey is the key for the slash id counter
	NextSlashIDKey = []byte{0x11}

	// SlashRecordsByHostPrefix indexes slash records by host
	SlashRecordsByHostPrefix = []byte{0x12}
)

func uint64Bytes(v uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, v)
	return bz
}

func timeBytes(t time.Time) []byte {
	return uint64Bytes(uint64(t.Unix()))
}

func lengthPrefixed(addr sdk.AccAddress) []byte {
	return address.MustLengthPrefix(addr)
}

// HostKey returns the store key for a host record.
func HostKey(addr sdk.AccAddress) []byte {
	return append(HostKeyPrefix, addr.Bytes()...)
}

// ActiveHostKey returns the active-set index key for a host.
func ActiveHostKey(addr sdk.AccAddress) []byte {
	return append(ActiveHostsPrefix, addr.Bytes()...)
}

// ModelIndexPrefix returns the iteration prefix for one model's host index.
func ModelIndexPrefix(modelID string) []byte {
	key := append([]byte{}, HostsByModelPrefix...)
	key = append(key, byte(len(modelID)))
	return append(key, modelID...)
}

// ModelHostKey returns the per-model index key for a host.
func ModelHostKey(modelID string, addr sdk.AccAddress) []byte {
	return append(ModelIndexPrefix(modelID), addr.Bytes()...)
}

// SessionKey returns the store key for a session record.
func SessionKey(id uint64) []byte {
	return append(SessionKeyPrefix, uint64Bytes(id)...)
}

// SessionByDepositorKey returns the depositor index key for a session.
func SessionByDepositorKey(depositor sdk.AccAddress, id uint64) []byte {
	key := append([]byte{}, SessionsByDepositorPrefix...)
	key = append(key, address.MustLengthPrefix(depositor)...)
	return append(key, uint64Bytes(id)...)
}

// SessionByHostKey returns the host index key for a session.
func SessionByHostKey(host sdk.AccAddress, id uint64) []byte {
	key := append([]byte{}, SessionsByHostPrefix...)
	key = append(key, address.MustLengthPrefix(host)...)
	return append(key, uint64Bytes(id)...)
}

// SessionDeadlineKey returns the deadline index key for a session. The key
// orders by unix deadline, then session id.
func SessionDeadlineKey(deadline time.Time, id uint64) []byte {
	key := append([]byte{}, SessionDeadlinePrefix...)
	key = append(key, timeBytes(deadline)...)
	return append(key, uint64Bytes(id)...)
}

// ProofRecordKey returns the store key for a proof verdict by content hash.
func ProofRecordKey(hash []byte) []byte {
	return append(ProofRecordKeyPrefix, hash...)
}

// ChallengeKey returns the store key for a challenge record.
func ChallengeKey(id uint64) []byte {
	return append(ChallengeKeyPrefix, uint64Bytes(id)...)
}

// ChallengeDeadlineKey returns the deadline index key for a challenge.
func ChallengeDeadlineKey(deadline time.Time, id uint64) []byte {
	key := append([]byte{}, ChallengeDeadlinePrefix...)
	key = append(key, timeBytes(deadline)...)
	return append(key, uint64Bytes(id)...)
}

// ChallengeByProofKey returns the pending-challenge index key for a proof hash.
func ChallengeByProofKey(hash []byte) []byte {
	return append(ChallengeByProofPrefix, hash...)
}

// EarningsKey returns the store key for a host's balance in one denom.
func EarningsKey(host sdk.AccAddress, denom string) []byte {
	key := append([]byte{}, EarningsKeyPrefix...)
	key = append(key, address.MustLengthPrefix(host)...)
	return append(key, denom...)
}

// EarningsByHostPrefix returns the iteration prefix over one host's balances.
func EarningsByHostPrefix(host sdk.AccAddress) []byte {
	key := append([]byte{}, EarningsKeyPrefix...)
	return append(key, address.MustLengthPrefix(host)...)
}

// SlashRecordKey returns the store key for a slash record.
func SlashRecordKey(id uint64) []byte {
	return append(SlashRecordKeyPrefix, uint64Bytes(id)...)
}

// SlashRecordsByHostIterPrefix returns the iteration prefix over one host's
// slash record index.
func SlashRecordsByHostIterPrefix(host sdk.AccAddress) []byte {
	key := append([]byte{}, SlashRecordsByHostPrefix...)
	return append(key, address.MustLengthPrefix(host)...)
}

// SlashRecordByHostKey returns the per-host index key for a slash record.
func SlashRecordByHostKey(host sdk.AccAddress, id uint64) []byte {
	key := append([]byte{}, SlashRecordsByHostPrefix...)
	key = append(key, address.MustLengthPrefix(host)...)
	return append(key, uint64Bytes(id)...)
}

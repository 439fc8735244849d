// Package session derives the session key (§3) used by the Admission
// Controller (C7) to recognize successive turns of the same conversation.
package session

import (
	"crypto/sha256"
	"encoding/hex"
)

// hash returns the hex SHA-256 digest of b.
func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ForMessageShaped derives the session key for a Chat-Completions or
// Messages request: msg_<N>_<hash(first message)>, where N is the number
// of messages in the sequence. Including N guarantees that successive turns
// of a tool-calling loop (which grow the message list) do not collide.
func ForMessageShaped(explicit string, n int, firstMessageJSON []byte) string {
	if explicit != "" {
		return explicit
	}
	return "msg_" + itoa(n) + "_" + hash(firstMessageJSON)
}

// ForInputShaped derives the session key for a Responses request:
// input_<N>_<hash(first item)>.
func ForInputShaped(explicit string, n int, firstItemJSON []byte) string {
	if explicit != "" {
		return explicit
	}
	return "input_" + itoa(n) + "_" + hash(firstItemJSON)
}

// ForOpaqueBody derives the fallback session key when neither a
// message-shaped nor an input-shaped sequence can be identified:
// req_<hash(body)>.
func ForOpaqueBody(explicit string, body []byte) string {
	if explicit != "" {
		return explicit
	}
	return "req_" + hash(body)
}

// ContentHash returns the content hash the Admission Controller uses to key
// the dedupe table. It is the same SHA-256-over-JSON primitive the session
// key itself uses, applied to the full request body.
func ContentHash(body []byte) string {
	return hash(body)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

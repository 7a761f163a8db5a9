package payloads

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/notebookhub/hubauth/internal/pkg/aead"
)

func formatTime(t time.Time) string {
	return fmt.Sprintf("%d", t.Unix())
}

func parseTime(t string) (time.Time, error) {
	ts, err := strconv.Atoi(t)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(ts), 0), nil
}

// separates the encoded blob (in the format "value|timestamp|signature") into its component parts
func parseBlob(blob string) (value string, timestamp time.Time, signature []byte, err error) {
	// split blob and verify number of elements
	parts := strings.Split(blob, "|")
	if len(parts) != 3 {
		err = errors.New("incorrect format")
		return
	}

	// decode the original value from its base64 representation
	bytes, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		err = errors.New("could not decode value")
		return
	}
	value = string(bytes)

	// parse the timestamp to time.Time
	timestamp, err = parseTime(parts[1])
	if err != nil {
		err = errors.New("could not parse timestamp")
		return
	}

	// decode the base64 signature into []byte
	signature, err = base64.URLEncoding.DecodeString(parts[2])
	if err != nil {
		err = errors.New("could not decode signature")
		return
	}
	return
}

// Payload represents a one-time authorization code handed to the hub: a
// value signed with the hub client's secret, timestamped, and sealed with
// an AEAD cipher. It contains a string Value, a timestamp Timestamp, a byte
// Signature, and a Cipher.
type Payload struct {
	Value     string
	Timestamp time.Time
	Signature []byte
	Cipher    aead.Cipher
}

// New returns a new payload whose signature binds the value and timestamp to
// the given client id and key.
func New(clientID, value, key string, ts time.Time, cipher aead.Cipher) *Payload {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(clientID))
	h.Write([]byte(base64.URLEncoding.EncodeToString([]byte(value))))
	h.Write([]byte(formatTime(ts)))
	return &Payload{
		Value:     value,
		Timestamp: ts,
		Signature: h.Sum(nil),
		Cipher:    cipher,
	}
}

// Decrypt takes in a client id, an encrypted value, a key, an expiration window
// and a cipher, and decrypts the value into a payload, validating its signature
// and timestamp.
func Decrypt(clientID, encryptedValue, key string, expiration time.Duration, cipher aead.Cipher) (*Payload, error) {
	joined, err := base64.RawURLEncoding.DecodeString(encryptedValue)
	if err != nil {
		return nil, errors.New("could not decode signed payload")
	}

	decrypted, err := cipher.Decrypt(joined)
	if err != nil {
		return nil, errors.New("could not decrypt value for signed payload")
	}

	value, timestamp, signature, err := parseBlob(string(decrypted))
	if err != nil {
		return nil, err
	}

	p := New(clientID, value, key, timestamp, cipher)
	return p, p.validate(signature, expiration)
}

// Encrypt takes in a payload and returns an encrypted value.
func Encrypt(p *Payload) (string, error) {
	encodedValue := base64.URLEncoding.EncodeToString([]byte(p.Value))
	sig := base64.URLEncoding.EncodeToString(p.Signature)
	blob := fmt.Sprintf("%s|%s|%s", encodedValue, formatTime(p.Timestamp), sig)
	encryptedValue, err := p.Cipher.Encrypt([]byte(blob))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(encryptedValue), nil
}

func (p *Payload) validate(sig []byte, expiration time.Duration) error {
	err := p.validateSignature(sig)
	if err != nil {
		return err
	}
	return p.validateExpiration(expiration)
}

func (p *Payload) validateSignature(sig []byte) error {
	if hmac.Equal(p.Signature, sig) {
		return nil
	}
	return errors.New("invalid signature")
}

func (p *Payload) validateExpiration(expiration time.Duration) error {
	if p.Timestamp.After(time.Now().Add(expiration*-1)) &&
		p.Timestamp.Before(time.Now().Add(time.Minute*5)) {
		return nil
	}
	return errors.New("payload expired")
}

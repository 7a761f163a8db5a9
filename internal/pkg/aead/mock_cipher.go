package aead

import "encoding/json"

// MockCipher is a mock of the Cipher interface for testing purposes
type MockCipher struct {
	MarshalString  string
	MarshalError   error
	UnmarshalBytes []byte
	UnmarshalError error
}

// Encrypt returns the plaintext unmodified
func (mc *MockCipher) Encrypt(b []byte) ([]byte, error) {
	return b, nil
}

// Decrypt returns the ciphertext unmodified
func (mc *MockCipher) Decrypt(b []byte) ([]byte, error) {
	return b, nil
}

// Marshal returns the MarshalString and MarshalError fields
func (mc *MockCipher) Marshal(s interface{}) (string, error) {
	return mc.MarshalString, mc.MarshalError
}

// Unmarshal unmarshals the UnmarshalBytes field into the passed interface
// and returns the UnmarshalError field
func (mc *MockCipher) Unmarshal(value string, s interface{}) error {
	if mc.UnmarshalBytes != nil {
		err := json.Unmarshal(mc.UnmarshalBytes, s)
		if err != nil {
			return err
		}
	}
	return mc.UnmarshalError
}

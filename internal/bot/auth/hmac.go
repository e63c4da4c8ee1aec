package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DeviceToken signs a device id with HMAC-SHA256 and returns it hex encoded.
func DeviceToken(deviceID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyDeviceToken validates a device token using HMAC-SHA256.
func VerifyDeviceToken(deviceID, token, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(deviceID))
	expected := mac.Sum(nil)

	sigBytes, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, sigBytes)
}

package auth

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod      = 30
	totpSecretBytes = 20
	totpDigits      = otp.DigitsSix

	// DefaultTOTPWindow tolerates one step of clock drift in each direction.
	DefaultTOTPWindow = 1

	qrCodeSize = 256
)

// TOTPSetup is a freshly provisioned shared secret.
type TOTPSetup struct {
	Secret          string
	ProvisioningURI string
}

// TOTPEngine generates and verifies RFC 6238 codes (SHA1, 6 digits, 30s).
type TOTPEngine struct {
	issuer string
	now    func() time.Time
}

func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{issuer: issuer, now: time.Now}
}

// WithClock returns a copy of the engine that reads time from now.
func (e *TOTPEngine) WithClock(now func() time.Time) *TOTPEngine {
	clone := *e
	clone.now = now
	return &clone
}

// GenerateSecret creates a 160-bit base32 secret and its otpauth:// URI
// labelled "<issuer>:<account>".
func (e *TOTPEngine) GenerateSecret(account string) (TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  totpSecretBytes,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return TOTPSetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// VerifyCode reports whether code matches the current step or any of the
// window steps on either side of it. Codes that are not exactly six ASCII
// digits are rejected without computing anything.
func (e *TOTPEngine) VerifyCode(secret, code string, window int) bool {
	code = strings.TrimSpace(code)
	if !isNumericCode(code, totpDigits.Length()) || secret == "" {
		return false
	}
	if window < 0 {
		window = 0
	}

	ok, err := totp.ValidateCustom(code, secret, e.now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      uint(window),
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// RenderQRCode encodes a provisioning URI as a PNG data URL.
func (e *TOTPEngine) RenderQRCode(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("parse provisioning uri: %w", err)
	}
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	if buf.Len() == 0 {
		return "", errors.New("empty qr code image")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func isNumericCode(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

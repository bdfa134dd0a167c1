package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const referralCodeLen = 8

// newReferralCode returns an 8 character code over A-Z0-9.
func newReferralCode() (string, error) {
	var b strings.Builder
	b.Grow(referralCodeLen)
	max := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < referralCodeLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// newCouponCode derives a personal coupon from the email local part,
// truncated to four characters, plus the signup time as HHMM.
func newCouponCode(email string, signedUpAt time.Time) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	if len(local) > 4 {
		local = local[:4]
	}
	return strings.ToLower(local) + fmt.Sprintf("%02d%02d", signedUpAt.Hour(), signedUpAt.Minute())
}

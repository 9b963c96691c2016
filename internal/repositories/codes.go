package repositories

import "crypto/rand"

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// generateCode returns a 6-character uppercase code for in-person
// verification. The alphabet drops easily confused glyphs (0/O, 1/I) since
// one party reads the code off a phone screen and the other types it in.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// newMeetupCodes issues the pair of codes for one meetup. The codes only need
// to differ from each other, not be globally unique.
func newMeetupCodes() (string, string, error) {
	requesterCode, err := generateCode()
	if err != nil {
		return "", "", err
	}
	for {
		receiverCode, err := generateCode()
		if err != nil {
			return "", "", err
		}
		if receiverCode != requesterCode {
			return requesterCode, receiverCode, nil
		}
	}
}

package oracle

import "encoding/base64"

// base64Decode accepts both padded and unpadded standard encoding.
func base64Decode(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}

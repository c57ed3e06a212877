package certify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"hash"
	"hash/fnv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lasqc/internal/model"
)

// Signature algorithms.
const (
	AlgorithmFNV  = "fnv1a-64"
	AlgorithmHMAC = "hmac-sha256"
)

// ErrSignatureMismatch is returned by Verify when a certificate's content no
// longer matches its signature.
var ErrSignatureMismatch = eris.New("certify: signature mismatch")

// Canonical returns the serialization that is signed: the certificate with an
// empty Signature, encoded as JSON with object keys sorted at every level, so
// the result does not depend on struct field order.
func Canonical(cert *model.Certificate) ([]byte, error) {
	c := *cert
	c.Signature = ""
	raw, err := json.Marshal(&c)
	if err != nil {
		return nil, eris.Wrap(err, "certify: marshal certificate")
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, eris.Wrap(err, "certify: normalize certificate")
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, eris.Wrap(err, "certify: marshal canonical form")
	}
	return out, nil
}

// Sign sets the certificate's algorithm and signature. An empty key selects
// the deterministic FNV-1a hash; otherwise HMAC-SHA256 is used.
func Sign(cert *model.Certificate, key []byte) error {
	cert.SignatureAlgorithm = AlgorithmFNV
	if len(key) > 0 {
		cert.SignatureAlgorithm = AlgorithmHMAC
	}
	sig, err := compute(cert, key)
	if err != nil {
		return err
	}
	cert.Signature = sig
	return nil
}

// Verify recomputes the signature with the certificate's own algorithm.
func Verify(cert *model.Certificate, key []byte) error {
	switch cert.SignatureAlgorithm {
	case AlgorithmFNV:
	case AlgorithmHMAC:
		if len(key) == 0 {
			return eris.New("certify: signing key required to verify hmac signature")
		}
	default:
		return eris.Errorf("certify: unknown signature algorithm %q", cert.SignatureAlgorithm)
	}
	want, err := compute(cert, key)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(cert.Signature)) {
		return eris.Wrapf(ErrSignatureMismatch, "certificate %s", cert.ID)
	}
	return nil
}

func compute(cert *model.Certificate, key []byte) (string, error) {
	body, err := Canonical(cert)
	if err != nil {
		return "", err
	}
	var h hash.Hash
	if cert.SignatureAlgorithm == AlgorithmHMAC {
		h = hmac.New(sha256.New, key)
	} else {
		h = fnv.New64a()
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

package artifactsigning

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/smallstep/pkcs7"
)

var errEmptyChain = errors.New("certificate chain is empty")

// ParseCertificates decodes a PKCS#7 certs-only bundle, or one or more
// concatenated DER certificates, and returns the certificates ordered leaf to
// root.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	if p7, err := pkcs7.Parse(data); err == nil {
		certs = p7.Certificates
	} else {
		certs, err = x509.ParseCertificates(data)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate chain: %w", err)
		}
	}
	if len(certs) == 0 {
		return nil, errEmptyChain
	}
	return OrderChain(certs), nil
}

// OrderChain orders certs from leaf to root by following issuer links.
// Certificates that are not part of the leaf's path keep their relative order
// after it.
func OrderChain(certs []*x509.Certificate) []*x509.Certificate {
	if len(certs) < 2 {
		return certs
	}

	leaf := -1
	for i, c := range certs {
		if !issuesAny(c, certs) {
			leaf = i
			break
		}
	}
	if leaf < 0 {
		return certs
	}

	used := make([]bool, len(certs))
	ordered := make([]*x509.Certificate, 0, len(certs))
	for cur := leaf; cur >= 0; {
		used[cur] = true
		ordered = append(ordered, certs[cur])
		next := -1
		for i, c := range certs {
			if !used[i] && issuedBy(certs[cur], c) {
				next = i
				break
			}
		}
		cur = next
	}
	for i, c := range certs {
		if !used[i] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

// issuesAny reports whether parent issued any certificate in certs other than itself.
func issuesAny(parent *x509.Certificate, certs []*x509.Certificate) bool {
	for _, c := range certs {
		if issuedBy(c, parent) {
			return true
		}
	}
	return false
}

func issuedBy(child, parent *x509.Certificate) bool {
	return child != parent && !child.Equal(parent) && bytes.Equal(child.RawIssuer, parent.RawSubject)
}

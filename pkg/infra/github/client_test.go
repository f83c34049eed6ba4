package github_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/m-mizutani/drover/pkg/infra/github"
	"github.com/m-mizutani/gt"
)

func TestNewClient(t *testing.T) {
	t.Run("invalid private key", func(t *testing.T) {
		_, err := github.NewClient(12345, 67890, []byte("not a pem key"))
		gt.Error(t, err)
	})

	t.Run("valid private key", func(t *testing.T) {
		key := gt.R1(rsa.GenerateKey(rand.Reader, 2048)).NoError(t)
		pemKey := pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		})

		client := gt.R1(github.NewClient(12345, 67890, pemKey)).NoError(t)
		gt.V(t, client).NotEqual(nil)
	})
}

package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

// Configuration keys for broker security.
const (
	// KeyKafkaConfigMode selects how clients authenticate to the brokers:
	// "plain" (no security, the default), "ssl" (mutual TLS) or "sasl"
	// (SCRAM-SHA-256 over TLS).
	KeyKafkaConfigMode = "KAFKA_CONFIG_MODE"
	// KeySSLCALocation is the path to the CA certificate bundle used to
	// verify the brokers in ssl mode.
	KeySSLCALocation = "SSL_CA_LOCATION"
	// KeySSLCertificateLocation is the path to the client certificate
	// presented to the brokers in ssl mode.
	KeySSLCertificateLocation = "SSL_CERTIFICATE_LOCATION"
	// KeySSLKeyLocation is the path to the client private key in ssl mode.
	// The key must be an unencrypted PEM file.
	KeySSLKeyLocation = "SSL_KEY_LOCATION"
	// KeySASLUsername is the SCRAM username in sasl mode.
	KeySASLUsername = "SASL_USER_NAME"
	// KeySASLPassword is the SCRAM password in sasl mode.
	KeySASLPassword = "SASL_PASSWORD"
	// KeyEnableSSLCertificateVerification disables broker certificate
	// verification when set to false. Defaults to true.
	KeyEnableSSLCertificateVerification = "ENABLE_SSL_CERTIFICATE_VERIFICATION"
)

// Supported KeyKafkaConfigMode values.
const (
	AuthModePlain = "plain"
	AuthModeSSL   = "ssl"
	AuthModeSASL  = "sasl"
)

// KafkaAuthOpts resolves broker security settings into franz-go client
// options. The mode comes from KeyKafkaConfigMode; plain yields no options,
// ssl yields a mutual-TLS dialer and sasl yields SCRAM-SHA-256 credentials
// over TLS. The Kafka source and sink constructors apply these automatically,
// so pointing the environment at secured brokers requires no code changes.
func (c *Configurator) KafkaAuthOpts() ([]kgo.Opt, error) {
	mode := strings.ToLower(c.Get(KeyKafkaConfigMode, AuthModePlain))
	switch mode {
	case AuthModePlain:
		return nil, nil
	case AuthModeSSL:
		return c.sslOpts()
	case AuthModeSASL:
		return c.saslOpts()
	default:
		return nil, &Error{Key: KeyKafkaConfigMode,
			Reason: fmt.Sprintf("value %q is not one of plain, ssl, sasl", mode)}
	}
}

func (c *Configurator) sslOpts() ([]kgo.Opt, error) {
	caPath, err := c.GetRequired(KeySSLCALocation,
		"Path to the CA bundle that signed the broker certificates.")
	if err != nil {
		return nil, err
	}
	certPath, err := c.GetRequired(KeySSLCertificateLocation,
		"Path to the client certificate presented to the brokers.")
	if err != nil {
		return nil, err
	}
	keyPath, err := c.GetRequired(KeySSLKeyLocation,
		"Path to the unencrypted client private key.")
	if err != nil {
		return nil, err
	}
	verify, err := c.GetBool(KeyEnableSSLCertificateVerification, true)
	if err != nil {
		return nil, err
	}

	caPEM, err := os.ReadFile(caPath)
	if err != nil {
		return nil, &Error{Key: KeySSLCALocation, Reason: err.Error()}
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, &Error{Key: KeySSLCALocation, Reason: "no certificates found in file"}
	}
	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, &Error{Key: KeySSLCertificateLocation, Reason: err.Error()}
	}
	tlsCfg := &tls.Config{
		RootCAs:            pool,
		Certificates:       []tls.Certificate{pair},
		InsecureSkipVerify: !verify,
	}
	return []kgo.Opt{kgo.DialTLSConfig(tlsCfg)}, nil
}

func (c *Configurator) saslOpts() ([]kgo.Opt, error) {
	user, err := c.GetRequired(KeySASLUsername, "SCRAM username for the brokers.")
	if err != nil {
		return nil, err
	}
	pass, err := c.GetRequired(KeySASLPassword, "SCRAM password for the brokers.")
	if err != nil {
		return nil, err
	}
	verify, err := c.GetBool(KeyEnableSSLCertificateVerification, true)
	if err != nil {
		return nil, err
	}
	mech := scram.Auth{User: user, Pass: pass}.AsSha256Mechanism()
	return []kgo.Opt{
		kgo.SASL(mech),
		kgo.DialTLSConfig(&tls.Config{InsecureSkipVerify: !verify}),
	}, nil
}

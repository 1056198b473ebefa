// Package artifactsigning talks to the Artifact Signing service: it submits
// digests to a certificate profile for signing and retrieves the profile's
// certificate chain.
package artifactsigning

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	apiVersion = "2022-06-15-preview"
	scope      = "https://codesigning.azure.net/.default"
	moduleName = "artifactsigning"

	defaultPollFrequency = time.Second
)

// Signature algorithms understood by the service.
const (
	AlgorithmPS256 = "PS256"
	AlgorithmPS384 = "PS384"
	AlgorithmPS512 = "PS512"
)

// Terminal and in-flight states of a sign operation.
const (
	StatusInProgress = "InProgress"
	StatusRunning    = "Running"
	StatusSucceeded  = "Succeeded"
	StatusFailed     = "Failed"
	StatusTimedOut   = "TimedOut"
	StatusNotFound   = "NotFound"
)

var (
	errMissingOperationLocation = errors.New("sign operation accepted without an Operation-Location header")
	errEmptySignature           = errors.New("sign operation succeeded without a signature")
)

// ClientOptions configures a Client.
type ClientOptions struct {
	azcore.ClientOptions

	// ClientVersion is reported in the User-Agent of every request.
	ClientVersion string
	// PollFrequency is the delay between two polls of a pending sign operation.
	PollFrequency time.Duration
}

// Client calls the signing endpoints of one certificate profile.
type Client struct {
	pl            runtime.Pipeline
	endpoint      string
	accountName   string
	profileName   string
	pollFrequency time.Duration
}

type signRequest struct {
	SignatureAlgorithm string `json:"signatureAlgorithm"`
	Digest             []byte `json:"digest"`
}

// SignStatus is the state of a sign operation as reported by the service.
type SignStatus struct {
	OperationID string `json:"operationId"`
	Status      string `json:"status"`
	Signature   []byte `json:"signature,omitempty"`
	// SigningCertificate holds the certificate (or PKCS#7 chain) of the key that
	// produced Signature.
	SigningCertificate []byte `json:"signingCertificate,omitempty"`
}

// NewClient returns a Client for the certificate profile profileName of the
// account accountName hosted at endpoint.
func NewClient(endpoint, accountName, profileName string, cred azcore.TokenCredential, options *ClientOptions) (*Client, error) {
	if options == nil {
		options = &ClientOptions{}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("endpoint %q is not an absolute URL", endpoint)
	}

	version := options.ClientVersion
	if version == "" {
		version = "0.0.0"
	}
	pollFrequency := options.PollFrequency
	if pollFrequency <= 0 {
		pollFrequency = defaultPollFrequency
	}

	authPolicy := runtime.NewBearerTokenPolicy(cred, []string{scope}, nil)
	pl := runtime.NewPipeline(moduleName, version, runtime.PipelineOptions{
		PerRetry: []policy.Policy{authPolicy},
	}, &options.ClientOptions)

	return &Client{
		pl:            pl,
		endpoint:      endpoint,
		accountName:   accountName,
		profileName:   profileName,
		pollFrequency: pollFrequency,
	}, nil
}

func (c *Client) profileURL(paths ...string) string {
	segments := append([]string{
		"codesigningaccounts", url.PathEscape(c.accountName),
		"certificateprofiles", url.PathEscape(c.profileName),
	}, paths...)
	return runtime.JoinPaths(c.endpoint, segments...)
}

func setAPIVersion(req *policy.Request) {
	q := req.Raw().URL.Query()
	if q.Get("api-version") == "" {
		q.Set("api-version", apiVersion)
		req.Raw().URL.RawQuery = q.Encode()
	}
}

// Sign submits digest for signing with algorithm and waits for the operation to
// finish.
func (c *Client) Sign(ctx context.Context, algorithm string, digest []byte) (*SignStatus, error) {
	req, err := runtime.NewRequest(ctx, http.MethodPost, c.profileURL("sign"))
	if err != nil {
		return nil, err
	}
	setAPIVersion(req)
	req.Raw().Header.Set("Accept", "application/json")
	if err := runtime.MarshalAsJSON(req, signRequest{SignatureAlgorithm: algorithm, Digest: digest}); err != nil {
		return nil, fmt.Errorf("encoding sign request: %w", err)
	}

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, err
	}

	var status *SignStatus
	switch {
	case runtime.HasStatusCode(resp, http.StatusAccepted):
		location := resp.Header.Get("Operation-Location")
		if location == "" {
			return nil, errMissingOperationLocation
		}
		runtime.Drain(resp)
		status, err = c.pollSign(ctx, location)
	case runtime.HasStatusCode(resp, http.StatusOK):
		status, err = decodeSignStatus(resp)
		if err == nil && status.Status != StatusSucceeded {
			return nil, fmt.Errorf("sign operation %s ended with status %s", status.OperationID, status.Status)
		}
	default:
		return nil, runtime.NewResponseError(resp)
	}
	if err != nil {
		return nil, err
	}
	if len(status.Signature) == 0 {
		return nil, errEmptySignature
	}
	return status, nil
}

// pollSign polls the operation at location until it reaches a terminal state.
func (c *Client) pollSign(ctx context.Context, location string) (*SignStatus, error) {
	for {
		req, err := runtime.NewRequest(ctx, http.MethodGet, location)
		if err != nil {
			return nil, err
		}
		setAPIVersion(req)
		req.Raw().Header.Set("Accept", "application/json")

		resp, err := c.pl.Do(req)
		if err != nil {
			return nil, err
		}
		if !runtime.HasStatusCode(resp, http.StatusOK) {
			return nil, runtime.NewResponseError(resp)
		}
		status, err := decodeSignStatus(resp)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusSucceeded:
			return status, nil
		case StatusFailed, StatusTimedOut, StatusNotFound:
			return nil, fmt.Errorf("sign operation %s ended with status %s", status.OperationID, status.Status)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for sign operation %s: %w", status.OperationID, ctx.Err())
		case <-time.After(c.pollFrequency):
		}
	}
}

func decodeSignStatus(resp *http.Response) (*SignStatus, error) {
	var status SignStatus
	if err := runtime.UnmarshalAsJSON(resp, &status); err != nil {
		return nil, fmt.Errorf("decoding sign status: %w", err)
	}
	return &status, nil
}

// CertificateChain returns the certificate chain of the profile, leaf first.
func (c *Client) CertificateChain(ctx context.Context) ([]*x509.Certificate, error) {
	req, err := runtime.NewRequest(ctx, http.MethodGet, c.profileURL("sign", "certchain"))
	if err != nil {
		return nil, err
	}
	setAPIVersion(req)
	req.Raw().Header.Set("Accept", "application/pkcs7-mime")

	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return nil, runtime.NewResponseError(resp)
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return nil, fmt.Errorf("reading certificate chain: %w", err)
	}
	return ParseCertificates(body)
}

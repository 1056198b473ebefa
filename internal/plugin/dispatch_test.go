package plugin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azure/notation-azure-artifactsigning/internal/protocol"
)

type runResult struct {
	code           int
	stdout, stderr string
}

func run(t *testing.T, p *Plugin, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := p.Run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestRunDescribeKey(t *testing.T) {
	in := `{"contractVersion":"1.0","keyId":"k1","pluginConfig":{"accountName":"a","certProfile":"p","baseUrl":"https://example.com"}}` + "\n"

	got := run(t, New(nil), in, "describe-key")
	assert.Equal(t, runResult{code: 0, stdout: `{"keyId":"k1","keySpec":"RSA-3072"}` + "\n"}, got)
}

func TestRunDescribeKeyEmptyRequest(t *testing.T) {
	got := run(t, New(nil), "{}\n", "describe-key")
	assert.Equal(t, runResult{
		code:   1,
		stderr: `{"errorCode":"VALIDATION_ERROR","errorMessage":"Request from notation was malformed: field contractVersion was null or empty"}` + "\n",
	}, got)
}

func TestRunNoCommand(t *testing.T) {
	for name, args := range map[string][]string{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			got := run(t, New(nil), "", args...)
			assert.Equal(t, runResult{
				code:   1,
				stderr: `{"errorCode":"ERROR","errorMessage":"No command was provided to plugin."}` + "\n",
			}, got)
		})
	}
}

func TestRunUnsupportedCommand(t *testing.T) {
	for _, verb := range []string{"sign", "help", "--help", "-h", "describe-keys", "completion", "__complete", "__completeNoDesc"} {
		t.Run(verb, func(t *testing.T) {
			got := run(t, New(nil), "{}\n", verb, "")
			assert.Equal(t, 1, got.code)
			assert.Empty(t, got.stdout)

			var resp protocol.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(got.stderr), &resp))
			assert.Equal(t, protocol.ErrorResponse{
				ErrorCode:    protocol.ErrorCodeGeneric,
				ErrorMessage: "Invalid/unsupported command was provided to plugin: " + verb,
			}, resp)
		})
	}
}

func TestRunMetadata(t *testing.T) {
	stubVersion(t, "1.0.7")

	got := run(t, New(nil), "{}\n", "get-plugin-metadata")
	require.Equal(t, 0, got.code, got.stderr)
	assert.Empty(t, got.stderr)

	var resp protocol.MetadataResponse
	require.NoError(t, json.Unmarshal([]byte(got.stdout), &resp))
	assert.Equal(t, "azure-artifactsigning", resp.Name)
	assert.Equal(t, "1.0.7", resp.Version)
	assert.Equal(t, []string{"SIGNATURE_GENERATOR.RAW"}, resp.Capabilities)
}

func TestRunNoInput(t *testing.T) {
	got := run(t, New(nil), "", "get-plugin-metadata")
	assert.Equal(t, runResult{
		code:   1,
		stderr: `{"errorCode":"VALIDATION_ERROR","errorMessage":"There was no input to ArtifactSigning plugin"}` + "\n",
	}, got)
}

func TestRunNullRequest(t *testing.T) {
	got := run(t, New(nil), "null\n", "describe-key")
	assert.Equal(t, runResult{
		code:   1,
		stderr: `{"errorCode":"VALIDATION_ERROR","errorMessage":"Unable to parse request from notation"}` + "\n",
	}, got)
}

func TestRunGenerateSignature(t *testing.T) {
	sc, chain := newFakeSignContext(t)
	var gotConfig *protocol.PluginConfig
	p := New(func(_ context.Context, cfg *protocol.PluginConfig) (SignContext, error) {
		gotConfig = cfg
		return sc, nil
	})

	req := validSignatureRequest()
	in, err := json.Marshal(req)
	require.NoError(t, err)

	got := run(t, p, string(in)+"\n", "generate-signature", "ignored")
	require.Equal(t, 0, got.code, got.stderr)
	assert.True(t, strings.HasSuffix(got.stdout, "\n"))
	assert.Equal(t, 1, strings.Count(got.stdout, "\n"))

	if diff := cmp.Diff(req.PluginConfig, gotConfig); diff != "" {
		t.Errorf("plugin config mismatch (-want +got):\n%s", diff)
	}

	var resp protocol.SignatureResponse
	require.NoError(t, json.Unmarshal([]byte(got.stdout), &resp))
	assert.Equal(t, "key", resp.KeyID)
	assert.Equal(t, "RSASSA-PSS-SHA-384", resp.SigningAlgorithm)
	assert.NotEmpty(t, resp.Signature)
	assert.Equal(t, []string{
		base64.StdEncoding.EncodeToString(chain.Leaf.Raw),
		base64.StdEncoding.EncodeToString(chain.Intermediate.Raw),
		base64.StdEncoding.EncodeToString(chain.Root.Raw),
	}, resp.CertificateChain)
}

func TestRunGenerateSignaturePaddedHashAlgorithm(t *testing.T) {
	sc, _ := newFakeSignContext(t)
	req := validSignatureRequest()
	req.HashAlgorithm = " SHA-384\t"
	in, err := json.Marshal(req)
	require.NoError(t, err)

	got := run(t, New(staticFactory(sc)), string(in)+"\n", "generate-signature")
	require.Equal(t, 0, got.code, got.stderr)
	assert.Empty(t, got.stderr)

	var resp protocol.SignatureResponse
	require.NoError(t, json.Unmarshal([]byte(got.stdout), &resp))
	assert.Equal(t, "RSASSA-PSS-SHA-384", resp.SigningAlgorithm)
	assert.Len(t, sc.gotDigest, 48)
}

func TestRunGenerateSignatureSignerFailure(t *testing.T) {
	sc, _ := newFakeSignContext(t)
	sc.signErr = errors.New("403 Forbidden")

	in, err := json.Marshal(validSignatureRequest())
	require.NoError(t, err)

	got := run(t, New(staticFactory(sc)), string(in), "generate-signature")
	assert.Equal(t, runResult{
		code:   1,
		stderr: `{"errorCode":"ERROR","errorMessage":"403 Forbidden"}` + "\n",
	}, got)
}

func TestRunMissingPluginConfig(t *testing.T) {
	for verb, in := range map[string]string{
		"describe-key":       `{"contractVersion":"1.0","keyId":"k1"}`,
		"generate-signature": `{"contractVersion":"1.0","keyId":"k1","keySpec":"RSA-3072","hashAlgorithm":"SHA-384","payload":"aGk="}`,
	} {
		t.Run(verb, func(t *testing.T) {
			got := run(t, New(nil), in, verb)
			assert.Equal(t, runResult{
				code:   1,
				stderr: `{"errorCode":"VALIDATION_ERROR","errorMessage":"pluginConfig from notation is null or empty"}` + "\n",
			}, got)
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteErrorResponse(&buf, errors.New("boom")))
	assert.Equal(t, `{"errorCode":"ERROR","errorMessage":"boom"}`+"\n", buf.String())
}

package artifactsigning

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/smallstep/pkcs7"

	"github.com/azure/notation-azure-artifactsigning/internal/testutil"
)

const (
	testAccount = "contoso"
	testProfile = "release"
	testToken   = "test-token"

	signPath      = "/codesigningaccounts/contoso/certificateprofiles/release/sign"
	certChainPath = signPath + "/certchain"
	operationPath = "/operations/op-1"
)

type fakeCredential struct{}

func (fakeCredential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: testToken, ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// fakeService emulates the sign and certchain endpoints of one certificate
// profile.
type fakeService struct {
	chain *testutil.Chain

	// pendingPolls is the number of polls answered with InProgress before the
	// operation succeeds. A negative value keeps the operation pending forever.
	pendingPolls int
	// signStatus overrides the status of a finished operation.
	signStatus string
	// signingCertificate is returned alongside the signature.
	signingCertificate []byte
	// syncSign answers the sign request with 200 instead of 202.
	syncSign bool
	// signCode fails the sign request with this status code when set.
	signCode int

	mu            sync.Mutex
	polls         int
	chainRequests int
	signature     []byte
	algorithm     string
	digest        []byte
	authHeaders   []string
	userAgents    []string
	apiVersions   []string
}

func (f *fakeService) start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(signPath, f.handleSign)
	mux.HandleFunc(certChainPath, f.handleCertChain)
	mux.HandleFunc(operationPath, f.handleOperation)

	return httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		f.userAgents = append(f.userAgents, r.Header.Get("User-Agent"))
		f.apiVersions = append(f.apiVersions, r.URL.Query().Get("api-version"))
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
}

func (f *fakeService) handleSign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if f.signCode != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.signCode)
		_, _ = w.Write([]byte(`{"error":{"code":"Forbidden","message":"caller is not a certificate profile signer"}}`))
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	hash := map[string]crypto.Hash{AlgorithmPS256: crypto.SHA256, AlgorithmPS384: crypto.SHA384, AlgorithmPS512: crypto.SHA512}[req.SignatureAlgorithm]
	sig, err := rsa.SignPSS(rand.Reader, f.chain.LeafKey, hash, req.Digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.algorithm = req.SignatureAlgorithm
	f.digest = req.Digest
	f.signature = sig
	f.mu.Unlock()

	if f.syncSign {
		writeJSON(w, http.StatusOK, f.finished())
		return
	}
	w.Header().Set("Operation-Location", "https://"+r.Host+operationPath)
	writeJSON(w, http.StatusAccepted, SignStatus{OperationID: "op-1", Status: StatusInProgress})
}

func (f *fakeService) handleOperation(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.polls++
	pending := f.pendingPolls < 0 || f.polls <= f.pendingPolls
	f.mu.Unlock()

	if pending {
		writeJSON(w, http.StatusOK, SignStatus{OperationID: "op-1", Status: StatusRunning})
		return
	}
	writeJSON(w, http.StatusOK, f.finished())
}

func (f *fakeService) finished() SignStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := SignStatus{OperationID: "op-1", Status: StatusSucceeded, SigningCertificate: f.signingCertificate}
	if f.signStatus != "" {
		status.Status = f.signStatus
	}
	if status.Status == StatusSucceeded {
		status.Signature = f.signature
	}
	return status
}

func (f *fakeService) handleCertChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f.mu.Lock()
	f.chainRequests++
	f.mu.Unlock()

	// the service does not guarantee any order inside the bundle
	p7, err := pkcs7.DegenerateCertificate(testutil.DER(f.chain.Root, f.chain.Leaf, f.chain.Intermediate))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pkcs7-mime")
	_, _ = w.Write(p7)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

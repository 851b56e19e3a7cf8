/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/version"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, opt Options) (*httptest.Server, *MemoryRepo) {
	t.Helper()
	if opt.Secret == "" {
		opt.Secret = testSecret
	}
	repo := NewMemoryRepo()
	s, err := NewServer(repo, opt)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok, err := SignToken(testSecret, sub, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func TestNewServerRequiresSecret(t *testing.T) {
	if _, err := NewServer(NewMemoryRepo(), Options{}); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestVerifyToken(t *testing.T) {
	now := time.Now()
	tok, _ := SignToken(testSecret, "alice", now.Add(time.Minute))
	if sub, err := verifyToken(testSecret, tok, now); err != nil || sub != "alice" {
		t.Fatalf("verify: %q %v", sub, err)
	}
	if _, err := verifyToken("other", tok, now); !errors.Is(err, errTokenSignature) {
		t.Fatalf("expected signature error, got %v", err)
	}
	if _, err := verifyToken(testSecret, tok, now.Add(2*time.Minute)); !errors.Is(err, errTokenExpired) {
		t.Fatalf("expected expiry error, got %v", err)
	}
	if _, err := verifyToken(testSecret, "garbage", now); !errors.Is(err, errTokenFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestVerifyTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "mallory", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := verifyToken(testSecret, unsigned, time.Now()); err == nil {
		t.Fatalf("alg none must be rejected")
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	rs, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign rs256: %v", err)
	}
	if _, err := verifyToken(testSecret, rs, time.Now()); err == nil {
		t.Fatalf("RS256 must be rejected")
	}

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "erin"}).SignedString([]byte(testSecret))
	if _, err := verifyToken(testSecret, noExp, time.Now()); err == nil {
		t.Fatalf("token without expiry must be rejected")
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready", "/version": version.String()} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || buf.String() != want {
			t.Fatalf("GET %s = %d %q", path, resp.StatusCode, buf.String())
		}
	}
}

func TestPublishRequiresAuth(t *testing.T) {
	srv, repo := newTestServer(t, Options{})
	resp, err := http.Post(srv.URL+"/api/decks", "application/json", strings.NewReader(`{"title":"x","slides":[{"id":"s","background":"#fff","elements":[]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if list, _ := repo.List(context.Background(), 0); len(list) != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestPublishRejectsMalformedDeck(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/decks", strings.NewReader(`{"title":"x","slides":[]}`))
	req.Header.Set("Authorization", "Bearer "+token(t, "bob"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Fatalf("error body: %v %v", body, err)
	}
}

func TestDevTokenEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, _ := http.Post(srv.URL+"/api/auth/token", "application/json", nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("token endpoint should be off by default, got %d", resp.StatusCode)
	}

	srv, _ = newTestServer(t, Options{DevTokens: true})
	resp, err := http.Post(srv.URL+"/api/auth/token", "application/json", strings.NewReader(`{"subject":"carol"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub, err := verifyToken(testSecret, out.Token, time.Now()); err != nil || sub != "carol" {
		t.Fatalf("issued token: %q %v", sub, err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	ctx := context.Background()
	c := NewClient(srv.URL+"/", token(t, "dana"), time.Second)

	p := domain.DefaultPresentation(nil)
	p.Title = "Published"
	first, err := c.Publish(ctx, p)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(first.ID) != 26 || first.Owner != "dana" || first.Slides != 1 {
		t.Fatalf("publication = %+v", first)
	}
	second, err := c.Publish(ctx, domain.DefaultPresentation(nil))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	list, err := c.List(ctx, 10)
	if err != nil || len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if one, _ := c.List(ctx, 1); len(one) != 1 {
		t.Fatalf("limit not honoured")
	}

	doc, err := c.Fetch(ctx, first.ID)
	if err != nil || doc.Title() != "Published" {
		t.Fatalf("Fetch: %v", err)
	}
	var pdf bytes.Buffer
	if err := c.FetchPDF(ctx, first.ID, &pdf); err != nil {
		t.Fatalf("FetchPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a PDF")
	}

	_, err = c.Fetch(ctx, "01UNKNOWN")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound || se.Message != "deck not found" {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestListRejectsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/api/decks?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestInlineImagesRefusesRemote(t *testing.T) {
	img := inlineImages{}
	if _, err := img.Load(context.Background(), "/etc/passwd"); err == nil {
		t.Fatalf("local paths must not be read")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("0002_owner_index.sql"); err != nil || v != 2 {
		t.Fatalf("parseVersion: %d %v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for unnumbered migration")
	}
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(entries) < 2 {
		t.Fatalf("embedded migrations: %v %v", entries, err)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package config

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService   = "GoSlideDeck"
	KeyGenerationAPI = "generation_api_key"
	KeyServerToken   = "server_token"

	EnvGenerationAPIKey = "GSD_GENERATION_API_KEY"
	EnvServerToken      = "GSD_SERVER_TOKEN"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

var secretEnv = map[string]string{
	KeyGenerationAPI: EnvGenerationAPIKey,
	KeyServerToken:   EnvServerToken,
}

// Secret returns the named secret. The environment wins over the keychain;
// a missing entry is not an error.
func Secret(key string) (string, error) {
	if env, ok := secretEnv[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	v, err := tokenStore.Get(keyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SetSecret stores value in the keychain; an empty value deletes the entry.
func SetSecret(key, value string) error {
	if value == "" {
		err := tokenStore.Delete(keyringService, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, key, value)
}


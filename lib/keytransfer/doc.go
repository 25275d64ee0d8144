// Copyright 2026 The OSVoice Authors
// SPDX-License-Identifier: Apache-2.0

// Package keytransfer moves API keys between installations.
//
// Keys sealed by apikey are bound to one installation's root secret,
// so copying the database to a new machine does not move them. An
// export instead reveals each key, CBOR-encodes the set as a versioned
// archive, and age-encrypts it to the receiving installation's public
// key. The receiver decrypts with its identity and stores each key
// under its own root secret.
package keytransfer

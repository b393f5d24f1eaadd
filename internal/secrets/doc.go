// Package secrets provides the cryptographic primitives of stash.
//
// # Secrets
//
// Every file in a stash is encrypted with its own Secret: a random 256-bit key
// and a random 96-bit nonce, generated fresh per file and never reused. A
// secret serializes to a fixed 44-byte blob (key || nonce), which is the value
// kept in both the session cache and the persistent store.
//
// Secret bytes live in memguard locked buffers (mlocked, guarded, wiped on
// Destroy). Callers own the secrets they create or load and must Destroy them:
//
//	secret := secrets.Generate()
//	defer secret.Destroy()
//
// # File Operations
//
// Files are encrypted in place, or from a source file into a new one:
//
//	secrets.EncryptInPlace(path, secret, secrets.CipherAES256GCM)
//	secrets.DecryptInPlace(path, secret, secrets.CipherAES256GCM)
//	secrets.EncryptTo(src, dest, secret, secrets.CipherAES256GCM)
//
// The whole file is read into memory, sealed (or opened) with empty
// associated data, written to a .stash-tmp-* file in the target's directory
// and renamed over the target. The tag is appended to the ciphertext, so an
// encrypted file is 16 bytes longer than its plaintext.
//
// Decryption failures caused by a wrong secret or modified ciphertext are
// reported as ErrAuthenticationFailed and leave the file unchanged.
//
// # Ciphers
//
// Two AEADs are supported, both with 32-byte keys and 12-byte nonces:
// AES-256-GCM (the default) and ChaCha20-Poly1305. A vault picks one when it
// is created and keeps it for its lifetime.
package secrets

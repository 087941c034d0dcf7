package middleware

// ExportedKeyPrefixKey returns the context key for key_prefix.
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}

// Package config loads goaccountd settings from an optional TOML file and
// the environment, and maps them onto goAccount.Config.
//
// Environment variable names follow the original deployment (PORT,
// NODE_ENV, ACTIVATION_SECRET, CRYPTO_SECRET, BYTE_KEY_16, ACCESS_TOKEN,
// ACCESS_TOKEN_EXPIRE, REDIS_URL, EMAIL_*, DATABASE_*). Environment values
// win over the file.
package config

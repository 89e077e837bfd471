// Package config loads llmerge job files.
//
// A job file is YAML with four sections: data names the input and output
// files and the columns read from each, merge controls chunking and the
// join keys, chain configures the chat model used as matcher, and
// embedding configures the document index. Every value has a default, so
// an empty file is a valid job; commands report the inputs they need.
//
// Secrets never live in the job file. chain.api_key_env names the
// environment variable holding the key, and LoadEnv reads .env files
// into the environment first.
package config

package model

// Package model holds the per-attempt value types shared by the posting
// pipeline: caller credentials, the attempt itself, and the error class
// taxonomy used to label every failure.

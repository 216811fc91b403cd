package types

// Version is the canonical accord version.
// The CLI and the delivery frame contract share this version.
const Version = "0.3.0"

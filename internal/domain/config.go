package domain

// KeyPrefix namespaces every key written to a shared Redis/Valkey instance.
const KeyPrefix = "feedlock:"

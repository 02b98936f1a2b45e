package domain

// KeyPrefix namespaces every hopdex key in the shared cache store, so one
// Redis instance can serve several services side by side.
const KeyPrefix = "hopdex:"

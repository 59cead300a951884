package persistence

// TokenKey is the namespaced storage key that holds the raw bearer token.
const TokenKey = "com.mybusiness.managerapp/authToken:v1"

package models

// ErrorResponse is the JSON body of every failed admin API call.
type ErrorResponse struct {
	Status  int    `json:"status"`  // HTTP status code
	Message string `json:"message"` // human readable reason
}

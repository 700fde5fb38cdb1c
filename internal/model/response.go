package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type TaskListResponse struct {
	Tasks []Task `json:"tasks"`
}

package server

import (
	"github.com/crimson-sun/cardio/internal/model"
)

type batchRequest struct {
	Records []*model.Input `json:"records" validate:"required,min=1,max=1000,dive,required"`
}

type predictResponse struct {
	HeartDisease int `json:"heart_disease"`
}

type batchResponse struct {
	HeartDisease []int `json:"heart_disease"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

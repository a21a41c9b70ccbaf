// Package docs holds the generated swagger specification for the
// modelmarket HTTP API. Regenerate with swag when routes change.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/market/v1/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List the model catalog in id order",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "List a model for sale",
                "parameters": [
                    {"name": "X-User-Id", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Invalid listing"},
                    "401": {"description": "Missing caller identity"}
                }
            }
        },
        "/api/market/v1/models/{model_id}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get a model snapshot with derived average rating",
                "parameters": [
                    {"name": "model_id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Model not found"}
                }
            }
        },
        "/api/market/v1/models/{model_id}/purchase": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Purchase a model; the full payment is retained",
                "parameters": [
                    {"name": "X-User-Id", "in": "header", "required": true, "type": "string"},
                    {"name": "Idempotency-Key", "in": "header", "required": false, "type": "string"},
                    {"name": "model_id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "402": {"description": "Insufficient payment"},
                    "404": {"description": "Model not found"},
                    "409": {"description": "Model already sold"}
                }
            }
        },
        "/api/market/v1/models/{model_id}/rating": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Rate a purchased model (buyer only, score 1-5)",
                "parameters": [
                    {"name": "X-User-Id", "in": "header", "required": true, "type": "string"},
                    {"name": "model_id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Only buyers can rate"},
                    "422": {"description": "Invalid rating"}
                }
            }
        },
        "/api/market/v1/treasury/balance": {
            "get": {
                "produces": ["application/json"],
                "summary": "Read the custody balance (operator only)",
                "parameters": [
                    {"name": "X-User-Id", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Caller is not the operator"}
                }
            }
        },
        "/api/market/v1/treasury/withdraw": {
            "post": {
                "produces": ["application/json"],
                "summary": "Withdraw the full custody balance (operator only)",
                "parameters": [
                    {"name": "X-User-Id", "in": "header", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Caller is not the operator"},
                    "502": {"description": "Payout transfer failed"}
                }
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "modelmarket API",
	Description:      "Marketplace ledger for listed models, purchases, ratings and operator withdrawals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs registers the swagger description of the admin API.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/token": {"post": {"tags": ["auth"], "summary": "Exchange the admin API key for a JWT",
            "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.TokenRequest"}}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/controllers.TokenResponse"}},
                "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}}}},
        "/users": {"get": {"tags": ["users"], "summary": "List approved users", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}}}}},
        "/users/pending": {"get": {"tags": ["users"], "summary": "List access requests", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.User"}}}}}},
        "/users/pending/{id}/approve": {"post": {"tags": ["users"], "summary": "Approve an access request", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}},
                "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}}}},
        "/users/pending/{id}/reject": {"post": {"tags": ["users"], "summary": "Reject an access request", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
            "responses": {"204": {"description": "No Content"}}}},
        "/users/{id}": {"delete": {"tags": ["users"], "summary": "Remove an approved user", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
            "responses": {"204": {"description": "No Content"}}}},
        "/surveys": {"post": {"tags": ["surveys"], "summary": "Start a survey", "security": [{"BearerAuth": []}],
            "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/controllers.StartSurveyResponse"}},
                "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}}}},
        "/surveys/active": {"get": {"tags": ["surveys"], "summary": "Get the active survey", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Survey"}}}}},
        "/surveys/active/close": {"post": {"tags": ["surveys"], "summary": "Close the active survey", "security": [{"BearerAuth": []}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Survey"}}}}},
        "/surveys/{id}/stats": {"get": {"tags": ["stats"], "summary": "Statistics of one survey", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.SurveyStats"}}}}},
        "/surveys/{id}/export": {"get": {"tags": ["stats"], "summary": "Anonymous CSV export", "produces": ["text/csv"], "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
            "responses": {"200": {"description": "OK", "schema": {"type": "string"}}}}},
        "/stats/trend": {"get": {"tags": ["stats"], "summary": "Per-survey averages of closed surveys", "security": [{"BearerAuth": []}],
            "parameters": [{"type": "integer", "name": "days", "in": "query"}],
            "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.PeriodStat"}}}}}}
    },
    "definitions": {
        "controllers.TokenRequest": {"type": "object", "properties": {"api_key": {"type": "string"}}},
        "controllers.TokenResponse": {"type": "object", "properties": {"token": {"type": "string"}, "expiresAt": {"type": "string"}}},
        "controllers.StartSurveyResponse": {"type": "object", "properties": {"survey": {"$ref": "#/definitions/models.Survey"}, "sent": {"type": "integer"}, "failed": {"type": "integer"}}},
        "models.ErrorResponse": {"type": "object", "properties": {"status": {"type": "integer"}, "message": {"type": "string"}}},
        "models.User": {"type": "object", "properties": {"userId": {"type": "integer"}, "username": {"type": "string"}, "firstName": {"type": "string"}, "lastName": {"type": "string"}, "since": {"type": "string"}}},
        "models.Survey": {"type": "object", "properties": {"id": {"type": "integer"}, "startedAt": {"type": "string"}, "deadlineAt": {"type": "string"}, "active": {"type": "boolean"}}},
        "models.FeedbackItem": {"type": "object", "properties": {"text": {"type": "string"}, "createdAt": {"type": "string"}}},
        "models.SurveyStats": {"type": "object", "properties": {"surveyId": {"type": "integer"}, "avgInterest": {"type": "number"}, "avgRelevance": {"type": "number"}, "avgSpiritualGrowth": {"type": "number"}, "totalAttended": {"type": "integer"}, "notAttended": {"type": "integer"}, "feedbacks": {"type": "array", "items": {"$ref": "#/definitions/models.FeedbackItem"}}}},
        "models.PeriodStat": {"type": "object", "properties": {"surveyId": {"type": "integer"}, "startedAt": {"type": "string"}, "avgInterest": {"type": "number"}, "avgRelevance": {"type": "number"}, "avgSpiritualGrowth": {"type": "number"}, "attendedCount": {"type": "integer"}, "notAttendedCount": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Youth Feedback Bot admin API",
	Description:      "Access requests, surveys and statistics of the youth feedback bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Package docs holds the OpenAPI description served at /swagger. It mirrors
// the swag annotations on the handlers and is maintained by hand.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/admin/login": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Exchange admin credentials for the admin secret",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.AdminLoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AdminLoginResponse"}},
                    "400": {"description": "Malformed body", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Login failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["suggestions"],
                "summary": "List categories",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Category"}}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/replies": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "Reply to a suggestion (admin only)",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Admin secret from /admin/login",
                        "name": "X-Admin-Key",
                        "in": "header",
                        "required": true
                    },
                    {
                        "description": "Reply payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CreateReplyRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Missing field or unknown suggestion", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "Missing or wrong admin secret", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/replies/{suggestionId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["replies"],
                "summary": "List the replies of a suggestion, oldest first",
                "parameters": [
                    {
                        "minimum": 1,
                        "type": "integer",
                        "description": "Suggestion ID",
                        "name": "suggestionId",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Return 304 if ETag matches",
                        "name": "If-None-Match",
                        "in": "header"
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.ReplyView"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Bad suggestion id", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/suggestions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["suggestions"],
                "summary": "List suggestions, newest first",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.SuggestionView"}}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["suggestions"],
                "summary": "Submit an anonymous suggestion",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Idempotency key for safe retries (UUID)",
                        "name": "Idempotency-Key",
                        "in": "header"
                    },
                    {
                        "description": "Suggestion payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.CreateSuggestionRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Missing field or unknown category", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/vote": {
            "post": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Vote for a suggestion",
                "parameters": [
                    {
                        "description": "Target suggestion",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.VoteRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Missing suggestion id or identity cookie", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Already voted", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Withdraw a vote",
                "parameters": [
                    {
                        "description": "Target suggestion",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.VoteRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MessageResponse"}},
                    "400": {"description": "Missing suggestion id or identity cookie", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not voted yet", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Store error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Database busy", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Category": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "domain.ReplyView": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "repliedAt": {"type": "string"},
                "replyId": {"type": "string"},
                "suggestionId": {"type": "integer"}
            }
        },
        "domain.SuggestionView": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "displayNo": {"type": "integer"},
                "replyCount": {"type": "integer"},
                "status": {"type": "string"},
                "suggestionId": {"type": "integer"},
                "title": {"type": "string"},
                "voteCount": {"type": "integer"},
                "voted": {"type": "boolean"}
            }
        },
        "handlers.AdminLoginRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "admin"},
                "passphrase": {"type": "string", "example": "correct horse battery staple"}
            }
        },
        "handlers.AdminLoginResponse": {
            "type": "object",
            "properties": {
                "adminSecret": {"type": "string"}
            }
        },
        "handlers.CreateReplyRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string", "example": "Ticket filed with facilities"},
                "suggestionId": {"type": "integer", "example": 1}
            }
        },
        "handlers.CreateSuggestionRequest": {
            "type": "object",
            "properties": {
                "categoryId": {"type": "integer", "example": 1},
                "content": {"type": "string", "example": "The library printer jams daily"},
                "title": {"type": "string", "maxLength": 200, "example": "Fix printer"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string", "example": "ok"}
            }
        },
        "handlers.VoteRequest": {
            "type": "object",
            "properties": {
                "suggestionId": {"type": "integer", "example": 1}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Suggestion Box API",
	Description:      "Anonymous student suggestions with one vote per student and admin replies.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

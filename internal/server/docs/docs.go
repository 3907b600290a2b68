// Package docs contains the generated swagger documentation.
// Run `swag init -g internal/server/api.go -o internal/server/docs` to regenerate.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "orgbridge API",
        "description": "Documentation search, Data Cloud event handling and org data access for Heroku reference apps.",
        "version": "1.0"
    },
    "host": "localhost:8000",
    "basePath": "/",
    "paths": {
        "/": {
            "get": {
                "description": "Returns a welcome message with pointers to the docs and the org API prefix.",
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Welcome message",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/WelcomeResponse"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["meta"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {"type": "string"}
                        }
                    }
                }
            }
        },
        "/search": {
            "get": {
                "description": "Embeds the query, retrieves the closest chunks and synthesizes an answer.",
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Ask the documentation index a question",
                "parameters": [
                    {
                        "type": "string",
                        "name": "query",
                        "in": "query",
                        "description": "Question to answer",
                        "required": true
                    },
                    {
                        "type": "integer",
                        "name": "top_k",
                        "in": "query",
                        "description": "Chunks to retrieve (1-20, default 10)"
                    },
                    {
                        "type": "string",
                        "name": "response_mode",
                        "in": "query",
                        "description": "Synthesis mode: tree_summarize, refine, compact or simple_summarize"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/SearchResponse"}
                    },
                    "400": {
                        "description": "Missing query or invalid parameters",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "404": {
                        "description": "Index is empty",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Search failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/handleDataCloudDataChangeEvent/": {
            "post": {
                "description": "Validates the notification, logs its events and fans them out to live feed subscribers.",
                "consumes": ["application/json"],
                "tags": ["events"],
                "summary": "Receive a Data Cloud Data Action webhook",
                "parameters": [
                    {
                        "name": "notification",
                        "in": "body",
                        "description": "Data Action notification",
                        "required": true,
                        "schema": {"$ref": "#/definitions/Notification"}
                    }
                ],
                "responses": {
                    "204": {"description": "Events accepted"},
                    "400": {
                        "description": "Malformed notification",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Event log write failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/v1/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List logged Data Cloud events",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "type": "string",
                        "name": "action",
                        "in": "query",
                        "description": "Filter by action developer name"
                    },
                    {
                        "type": "string",
                        "name": "source_object",
                        "in": "query",
                        "description": "Filter by source object"
                    },
                    {
                        "type": "integer",
                        "name": "limit",
                        "in": "query",
                        "description": "Maximum events to return"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/EventsResponse"}
                    },
                    "500": {
                        "description": "Event log read failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/v1/events/ticket": {
            "post": {
                "description": "Tickets are single-use and expire after 30 seconds.",
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Issue a one-time WebSocket ticket",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/TicketResponse"}
                    }
                }
            }
        },
        "/v1/index/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["index"],
                "summary": "Vector index statistics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/IndexStatsResponse"}
                    },
                    "500": {
                        "description": "Count failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/v1/index": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["index"],
                "summary": "Clear the vector index",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/IndexClearResponse"}
                    },
                    "500": {
                        "description": "Clear failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/v1/index/documents/{fileName}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["index"],
                "summary": "Delete one file's chunks from the index",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "type": "string",
                        "name": "fileName",
                        "in": "path",
                        "description": "File name as recorded at ingest time",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/IndexDeleteResponse"}
                    },
                    "400": {
                        "description": "Bad file name",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Delete failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/api/accounts/": {
            "get": {
                "description": "Runs SELECT Id, Name FROM Account against the calling org.",
                "produces": ["application/json"],
                "tags": ["org"],
                "summary": "List org accounts",
                "parameters": [
                    {
                        "type": "string",
                        "name": "x-client-context",
                        "in": "header",
                        "description": "Base64 org client context",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {"$ref": "#/definitions/AccountResponse"}
                        }
                    },
                    "401": {
                        "description": "Missing or invalid client context",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "502": {
                        "description": "Org query failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        },
        "/api/unitofwork/": {
            "post": {
                "description": "Registers an Account, a Contact and a service Case plus follow-up Case and commits them atomically via the org composite graph API.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["org"],
                "summary": "Create account, contact and cases in one transaction",
                "parameters": [
                    {
                        "type": "string",
                        "name": "x-client-context",
                        "in": "header",
                        "description": "Base64 org client context",
                        "required": true
                    },
                    {
                        "name": "request",
                        "in": "body",
                        "description": "Records to create",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UnitOfWorkRequest"}
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {"$ref": "#/definitions/UnitOfWorkResponse"}
                    },
                    "400": {
                        "description": "Missing required fields",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "401": {
                        "description": "Missing or invalid client context",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    },
                    "500": {
                        "description": "Commit failed",
                        "schema": {"$ref": "#/definitions/ErrorResponse"}
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "WelcomeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "docs_url": {"type": "string"},
                "salesforce_api_prefix": {"type": "string"}
            }
        },
        "SearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "response": {"type": "string"},
                "documents_count": {"type": "integer"}
            }
        },
        "Notification": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/Event"}
                },
                "schemas": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"schemaId": {"type": "string"}}
                    }
                }
            }
        },
        "Event": {
            "type": "object",
            "properties": {
                "ActionDeveloperName": {"type": "string"},
                "EventType": {"type": "string"},
                "EventPrompt": {"type": "string"},
                "SourceObjectDeveloperName": {"type": "string"},
                "EventPublishDateTime": {"type": "string"},
                "PayloadCurrentValue": {"type": "object"}
            }
        },
        "EventsResponse": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/StoredEvent"}
                },
                "count": {"type": "integer"}
            }
        },
        "StoredEvent": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "action": {"type": "string"},
                "event_type": {"type": "string"},
                "event_prompt": {"type": "string"},
                "source_object": {"type": "string"},
                "published_at": {"type": "string"},
                "payload": {"type": "object"},
                "received_at": {"type": "string", "format": "date-time"}
            }
        },
        "TicketResponse": {
            "type": "object",
            "properties": {
                "ticket": {"type": "string"}
            }
        },
        "IndexStatsResponse": {
            "type": "object",
            "properties": {
                "documents": {"type": "integer"},
                "store": {"type": "string"}
            }
        },
        "IndexClearResponse": {
            "type": "object",
            "properties": {
                "cleared": {"type": "boolean"}
            }
        },
        "IndexDeleteResponse": {
            "type": "object",
            "properties": {
                "deleted": {"type": "integer"}
            }
        },
        "AccountResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "UnitOfWorkRequest": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/UnitOfWorkData"}
            }
        },
        "UnitOfWorkData": {
            "type": "object",
            "properties": {
                "accountName": {"type": "string"},
                "firstName": {"type": "string"},
                "lastName": {"type": "string"},
                "subject": {"type": "string"},
                "description": {"type": "string"},
                "callbackUrl": {"type": "string"}
            }
        },
        "UnitOfWorkResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "orgbridge API",
	Description:      "Documentation search, Data Cloud event handling and org data access for Heroku reference apps.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

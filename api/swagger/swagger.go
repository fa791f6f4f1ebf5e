package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LabHub API",
        "description": "Contribution review and material promotion service",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Contributions", "description": "Contribution review workflow"},
        {"name": "Activity", "description": "Lab activity trail"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/labs/{labId}/contributions": {
            "get": {
                "tags": ["Contributions"],
                "summary": "List contribution requests",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/contributions/{id}": {
            "get": {
                "tags": ["Contributions"],
                "summary": "Get contribution request",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/contributions/{id}/accept": {
            "post": {
                "tags": ["Contributions"],
                "summary": "Accept a pending contribution and promote its files",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transfer failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/contributions/{id}/reject": {
            "post": {
                "tags": ["Contributions"],
                "summary": "Reject a pending contribution and discard its files",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReviewActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/contributions/{id}/retry-migration": {
            "post": {
                "tags": ["Contributions"],
                "summary": "Re-run file migration for an accepted request",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/materials/{token}": {
            "get": {
                "tags": ["Contributions"],
                "summary": "Download a promoted material via signed token",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"}
                }
            }
        },
        "/labs/{labId}/activity": {
            "get": {
                "tags": ["Activity"],
                "summary": "List activity entries",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/labs/{labId}/activity/export": {
            "get": {
                "tags": ["Activity"],
                "summary": "Export activity trail",
                "parameters": [
                    {"name": "labId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File content"}
                }
            }
        }
    },
    "definitions": {
        "FileDescriptor": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "storage_key": {"type": "string"},
                "bucket": {"type": "string"},
                "type": {"type": "string"},
                "size": {"type": "integer"}
            }
        },
        "ContributionRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string"},
                "submitted_by": {"type": "string"},
                "lab_from": {"type": "string"},
                "status": {"type": "string"},
                "files": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/FileDescriptor"}
                },
                "num_files": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "ReviewActionRequest": {
            "type": "object",
            "properties": {
                "note": {"type": "string"}
            }
        },
        "ActivityLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "lab_id": {"type": "string"},
                "actor_id": {"type": "string"},
                "action": {"type": "string"},
                "details": {"type": "object"},
                "created_at": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "BrightPath Scheduling API",
        "description": "Recurring lesson generation and tutor availability resolution for the BrightPath tutoring platform.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Tutor slot availability resolution"},
        {"name": "Recurrence", "description": "Recurring lesson extension"},
        {"name": "Tutors", "description": "Weekly windows and time off"},
        {"name": "Lessons", "description": "Lesson calendar"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/availability/resolve": {
            "post": {
                "tags": ["Availability"],
                "summary": "Resolve tutor availability grid",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload"}
                }
            }
        },
        "/recurrence/run": {
            "post": {
                "tags": ["Recurrence"],
                "summary": "Trigger a recurrence extension run",
                "responses": {
                    "200": {"description": "Run summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/recurrence/groups": {
            "get": {
                "tags": ["Recurrence"],
                "summary": "List recurring groups due for extension",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{id}/availability": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List a tutor's weekly availability windows",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tutors"],
                "summary": "Add a weekly availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilityTemplateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid window"}
                }
            }
        },
        "/tutors/{id}/availability/{templateId}": {
            "delete": {
                "tags": ["Tutors"],
                "summary": "Remove a weekly availability window",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "templateId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/tutors/{id}/time-off": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List a tutor's time-off requests",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tutors"],
                "summary": "File a time-off request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimeOffRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/time-off/{requestId}/review": {
            "put": {
                "tags": ["Tutors"],
                "summary": "Approve or deny a time-off request",
                "parameters": [
                    {"name": "requestId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewTimeOffRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List lessons",
                "parameters": [
                    {"name": "tutorId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/lessons/{id}": {
            "get": {
                "tags": ["Lessons"],
                "summary": "Get a lesson with its roster",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        }
    },
    "definitions": {
        "SlotRequest": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "date": {"type": "string", "format": "date-time"},
                "time": {"type": "string", "example": "10:00"}
            },
            "required": ["key", "date", "time"]
        },
        "ResolveAvailabilityRequest": {
            "type": "object",
            "properties": {
                "tutorIds": {"type": "array", "items": {"type": "string"}},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotRequest"}},
                "viewType": {"type": "string", "enum": ["teacherDay", "teacherWeek"]}
            },
            "required": ["tutorIds", "slots", "viewType"]
        },
        "CreateAvailabilityTemplateRequest": {
            "type": "object",
            "properties": {
                "dayOfWeek": {"type": "string", "example": "monday"},
                "startTime": {"type": "string", "example": "09:00"},
                "endTime": {"type": "string", "example": "17:00"}
            },
            "required": ["dayOfWeek", "startTime", "endTime"]
        },
        "CreateTimeOffRequest": {
            "type": "object",
            "properties": {
                "startDate": {"type": "string", "format": "date-time"},
                "endDate": {"type": "string", "format": "date-time"},
                "reason": {"type": "string"}
            },
            "required": ["startDate", "endDate"]
        },
        "ReviewTimeOffRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["approved", "denied"]}
            },
            "required": ["status"]
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
                "status": {"type": "integer"}
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

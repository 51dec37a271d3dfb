// Package docs Rerouting Service API.
//
// Сервис перемаршрутизации обратных рейсов: по политике маршрута вычисляет момент,
// в который маршрут сервиса перестраивается через движок маршрутизации, и создает
// экспедицию с пересчитанными временами остановок.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.HealthResponse"}}
                }
            }
        },
        "/api/v1/schedules/due": {
            "get": {
                "description": "Pending записи, чей expected_at попадает в минуту at (RFC3339, по умолчанию сейчас)",
                "produces": ["application/json"],
                "tags": ["Schedules"],
                "summary": "List due entries",
                "parameters": [
                    {"type": "string", "description": "Instant, RFC3339", "name": "at", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/utils.SuccessResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.DueResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/schedules/{service_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Schedules"],
                "summary": "Get schedule entry",
                "parameters": [
                    {"type": "integer", "description": "Service ID", "name": "service_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/utils.SuccessResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.ScheduleResponse"}}}]}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/schedules/{service_id}/compute": {
            "post": {
                "description": "Пересчитывает момент перемаршрутизации сервиса. Без policy в теле берется политика маршрута.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Schedules"],
                "summary": "Compute rerouting schedule",
                "parameters": [
                    {"type": "integer", "description": "Service ID", "name": "service_id", "in": "path", "required": true},
                    {"description": "Policy override", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ComputeScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/utils.SuccessResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.ComputeScheduleResponse"}}}]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/schedules/{service_id}/execute": {
            "post": {
                "description": "Исполняет запись сервиса вне тика. Повторный вызов возвращает already_executed.",
                "produces": ["application/json"],
                "tags": ["Schedules"],
                "summary": "Execute schedule entry now",
                "parameters": [
                    {"type": "integer", "description": "Service ID", "name": "service_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/utils.SuccessResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.ExecuteResponse"}}}]}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Statistics"],
                "summary": "Get schedule statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [{"$ref": "#/definitions/utils.SuccessResponse"}, {"type": "object", "properties": {"data": {"$ref": "#/definitions/domain.ScheduleStats"}}}]}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/utils.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.PolicyOffset": {
            "type": "object",
            "required": ["quantity", "unit"],
            "properties": {
                "quantity": {"type": "integer", "minimum": 0},
                "unit": {"type": "string", "enum": ["days", "hours", "minutes"]}
            }
        },
        "domain.RoutePolicy": {
            "type": "object",
            "required": ["kind", "offset", "route_id"],
            "properties": {
                "activated": {"type": "boolean"},
                "kind": {"type": "string", "example": "time_before_service"},
                "offset": {"$ref": "#/definitions/domain.PolicyOffset"},
                "route_id": {"type": "integer"}
            }
        },
        "domain.ScheduleStats": {
            "type": "object",
            "properties": {
                "executed": {"type": "integer"},
                "last_updated": {"type": "string"},
                "next_due_at": {"type": "string"},
                "not_rerouted": {"type": "integer"},
                "pending": {"type": "integer"},
                "rerouted": {"type": "integer"}
            }
        },
        "dto.ComputeScheduleRequest": {
            "type": "object",
            "properties": {
                "policy": {"$ref": "#/definitions/domain.RoutePolicy"}
            }
        },
        "dto.ComputeScheduleResponse": {
            "type": "object",
            "properties": {
                "departure": {"type": "string"},
                "schedule": {"$ref": "#/definitions/dto.ScheduleResponse"},
                "scheduled": {"type": "boolean"},
                "service_id": {"type": "integer"}
            }
        },
        "dto.DueResponse": {
            "type": "object",
            "properties": {
                "at": {"type": "string"},
                "entries": {"type": "array", "items": {"$ref": "#/definitions/dto.ScheduleResponse"}}
            }
        },
        "dto.ExecuteResponse": {
            "type": "object",
            "properties": {
                "expedition_id": {"type": "string"},
                "outcome": {"type": "string", "enum": ["not_eligible", "status_blocked", "upstream_error", "success", "already_executed", "in_flight"]},
                "reason": {"type": "object"},
                "service_id": {"type": "integer"}
            }
        },
        "dto.HealthResponse": {
            "type": "object",
            "properties": {
                "services": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"}
            }
        },
        "dto.ScheduleResponse": {
            "type": "object",
            "properties": {
                "executed_at": {"type": "string"},
                "expected_at": {"type": "string"},
                "idempotency_key": {"type": "string"},
                "not_rerouted_reason": {"type": "object"},
                "route_id": {"type": "integer"},
                "service_id": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "executed"]}
            }
        },
        "errors.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "message": {"type": "string"}
            }
        },
        "utils.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"$ref": "#/definitions/errors.AppError"},
                "request_id": {"type": "string"}
            }
        },
        "utils.Meta": {
            "type": "object",
            "properties": {
                "time_ms": {"type": "number"},
                "total": {"type": "integer"}
            }
        },
        "utils.SuccessResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "meta": {"$ref": "#/definitions/utils.Meta"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Rerouting Service API",
	Description:      "Планирование и исполнение перемаршрутизации обратных рейсов.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

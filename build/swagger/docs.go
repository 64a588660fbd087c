// Package swagger registers the OpenAPI document served under /swagger/.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "vulnradar"},
        "license": {
            "name": "Apache 2.0",
            "url": "https://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/verify-token": {
            "post": {"tags": ["Auth"], "summary": "Verify identity token and create the user on first login"}
        },
        "/auth/me": {
            "get": {"tags": ["Auth"], "summary": "Current user", "security": [{"BearerAuth": []}]}
        },
        "/companies": {
            "get": {"tags": ["Directory"], "summary": "List companies"},
            "post": {"tags": ["Directory"], "summary": "Get or create a company", "security": [{"BearerAuth": []}]}
        },
        "/companies/{id}/users": {
            "get": {"tags": ["Directory"], "summary": "List a company's assignable users (admin)", "security": [{"BearerAuth": []}]}
        },
        "/vendors": {
            "get": {"tags": ["Directory"], "summary": "List the vendor catalog"}
        },
        "/user/company": {
            "get": {"tags": ["Users"], "summary": "Own company", "security": [{"BearerAuth": []}]}
        },
        "/user/vendors": {
            "get": {"tags": ["Users"], "summary": "Own company vendor selection", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Users"], "summary": "Replace the vendor selection", "security": [{"BearerAuth": []}]}
        },
        "/user/update": {
            "post": {"tags": ["Users"], "summary": "Update own profile", "security": [{"BearerAuth": []}]}
        },
        "/user-companies": {
            "get": {"tags": ["Users"], "summary": "Own company links", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities": {
            "get": {"tags": ["Vulnerabilities"], "summary": "List recent vulnerabilities", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/company": {
            "get": {"tags": ["Vulnerabilities"], "summary": "Visibility-filtered company listing", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/completed": {
            "get": {"tags": ["Vulnerabilities"], "summary": "Vulnerabilities with closed tasks (admin)", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/{id}": {
            "get": {"tags": ["Vulnerabilities"], "summary": "Single vulnerability", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/ingest": {
            "post": {"tags": ["Vulnerabilities"], "summary": "Ingest a candidate batch", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/rate": {
            "post": {"tags": ["Vulnerabilities"], "summary": "Rate relevance for the caller's company", "security": [{"BearerAuth": []}]}
        },
        "/vulnerabilities/download-all": {
            "post": {"tags": ["Vulnerabilities"], "summary": "Sequential feed download for all vendors (admin)", "security": [{"BearerAuth": []}]}
        },
        "/tasks": {
            "get": {"tags": ["Tasks"], "summary": "List tasks", "security": [{"BearerAuth": []}]},
            "post": {"tags": ["Tasks"], "summary": "Assign a task (admin)", "security": [{"BearerAuth": []}]}
        },
        "/tasks/claim": {
            "post": {"tags": ["Tasks"], "summary": "Claim a vulnerability", "security": [{"BearerAuth": []}]}
        },
        "/tasks/{id}": {
            "put": {"tags": ["Tasks"], "summary": "Transition a task and append a note", "security": [{"BearerAuth": []}]}
        },
        "/vulnerability-ratings": {
            "get": {"tags": ["Vulnerabilities"], "summary": "List relevance assessments", "security": [{"BearerAuth": []}]}
        },
        "/company-vendors": {
            "get": {"tags": ["Directory"], "summary": "List company-vendor links", "security": [{"BearerAuth": []}]}
        },
        "/audit-logs": {
            "get": {"tags": ["Directory"], "summary": "List audit logs (admin)", "security": [{"BearerAuth": []}]}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "vulnradar API",
	Description:      "REST API for tracking CVE records, matching them to company vendor selections, and routing them through a TLP-gated task workflow.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

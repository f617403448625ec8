package report

// Schema is the JSON Schema (Draft 2020-12) for the krypton gate
// JSON output. It documents the structure returned by WriteJSON.
const Schema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://github.com/unbound-force/krypton/gate-report.schema.json",
  "title": "Krypton Gate Report",
  "description": "Output schema for krypton --format=json",
  "type": "object",
  "required": ["version", "passed", "infractions", "thresholds", "blocks", "average", "average_grade", "modules", "violations", "skipped"],
  "properties": {
    "version": {
      "type": "string",
      "description": "krypton version that produced the report"
    },
    "passed": {
      "type": "boolean",
      "description": "True when no threshold was exceeded"
    },
    "infractions": {
      "type": "integer",
      "minimum": 0
    },
    "thresholds": { "$ref": "#/$defs/Thresholds" },
    "blocks": {
      "type": "integer",
      "minimum": 0,
      "description": "Number of blocks evaluated"
    },
    "average": {
      "type": "number",
      "minimum": 0,
      "description": "Project-wide mean block complexity"
    },
    "average_grade": { "$ref": "#/$defs/Grade" },
    "modules": {
      "type": "array",
      "items": { "$ref": "#/$defs/ModuleAverage" }
    },
    "violations": {
      "type": "array",
      "items": { "$ref": "#/$defs/Violation" }
    },
    "skipped": {
      "type": "array",
      "items": { "$ref": "#/$defs/Skipped" }
    }
  },
  "$defs": {
    "Grade": {
      "type": "string",
      "enum": ["A", "B", "C", "D", "E", "F"]
    },
    "Thresholds": {
      "type": "object",
      "properties": {
        "max_absolute": { "$ref": "#/$defs/Grade" },
        "max_modules": { "$ref": "#/$defs/Grade" },
        "max_average": { "$ref": "#/$defs/Grade" },
        "max_average_num": { "type": "number" }
      },
      "additionalProperties": false
    },
    "ModuleAverage": {
      "type": "object",
      "required": ["module", "blocks", "average", "grade"],
      "properties": {
        "module": { "type": "string" },
        "blocks": { "type": "integer", "minimum": 0 },
        "average": { "type": "number", "minimum": 0 },
        "grade": { "$ref": "#/$defs/Grade" }
      }
    },
    "Violation": {
      "type": "object",
      "required": ["scope", "subject", "grade", "value"],
      "properties": {
        "scope": {
          "type": "string",
          "enum": ["block", "module", "project"]
        },
        "subject": {
          "type": "string",
          "description": "block:<module>:<line>:<name>, the module name, average or average_num"
        },
        "grade": { "$ref": "#/$defs/Grade" },
        "value": {
          "type": "number",
          "description": "Block complexity or module/project average"
        },
        "module": { "type": "string" },
        "line": { "type": "integer" },
        "block": { "type": "string" }
      }
    },
    "Skipped": {
      "type": "object",
      "required": ["module", "error"],
      "properties": {
        "module": { "type": "string" },
        "error": { "type": "string" }
      }
    }
  }
}`

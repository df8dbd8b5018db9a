package parser

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/qerrors"
)

var defineValidate = validator.New()

// definitionDTO is validated before being converted into a
// document.Definition, grounded on the teacher's validate-then-convert
// pattern in pkg/models/channelmodel (validate.go, create.go).
type definitionDTO struct {
	DataType string `json:"type" validate:"required,oneof=String Number Bool Array Object"`
	Indexed  *bool  `json:"indexed" validate:"required"`
	Optional *bool  `json:"optional" validate:"required"`
}

// parseDefine parses "DEFINE <table> {attr: {type,indexed,optional}, ...}",
// grounded on original_source/src/parser.rs's parse_define_command.
func parseDefine(db, input string) (*Command, error) {
	rest, err := expectKeyword(input, kwDefine)
	if err != nil {
		return nil, err
	}
	table, rest, err := extractTableNameSpace(rest)
	if err != nil {
		return nil, err
	}
	jsonStr := strings.TrimSpace(rest)

	// json.Unmarshal into a map keeps the last of duplicate keys, so
	// reject them first with the order-preserving decoder.
	if _, err := document.ParseJSONValue(jsonStr); err != nil {
		return nil, qerrors.NewSyntaxError(qerrors.InvalidDefinition, "wrong JSON format for define command: "+err.Error())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, qerrors.NewSyntaxError(qerrors.InvalidDefinition, "wrong JSON format for define command: "+err.Error())
	}

	schema := make(document.Schema, len(raw))
	for attr, body := range raw {
		var dto definitionDTO
		if err := json.Unmarshal(body, &dto); err != nil {
			return nil, qerrors.NewSyntaxError(qerrors.InvalidDataType, "invalid definition for "+attr+": "+err.Error())
		}
		if err := defineValidate.Struct(dto); err != nil {
			return nil, qerrors.NewSyntaxError(qerrors.InvalidValue, "invalid definition for "+attr+": "+err.Error())
		}
		schema[attr] = document.Definition{
			DataType: dto.DataType,
			Indexed:  *dto.Indexed,
			Optional: *dto.Optional,
		}
	}

	return &Command{Kind: CmdDefine, Database: db, Table: table, Schema: schema}, nil
}

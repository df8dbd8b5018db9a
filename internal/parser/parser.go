package parser

import (
	"strings"

	"github.com/google/uuid"
	"github.com/keaz/qtable/internal/document"
	"github.com/keaz/qtable/internal/qerrors"
)

const (
	kwSelect = "SELECT"
	kwInsert = "INSERT"
	kwUpdate = "UPDATE"
	kwDelete = "DELETE"
	kwCreate = "CREATE"
	kwDefine = "DEFINE"
	kwAlter  = "ALTER"
	kwDrop   = "DROP"
)

// Parse dispatches a single client message to the matching command
// parser, mirroring original_source's handle_message.
func Parse(db, message string) (*Command, error) {
	message = strings.TrimSpace(message)
	switch {
	case strings.HasPrefix(message, kwSelect):
		return parseSelect(db, message)
	case strings.HasPrefix(message, kwInsert):
		return parseInsert(db, message)
	case strings.HasPrefix(message, kwUpdate):
		return parseUpdate(db, message)
	case strings.HasPrefix(message, kwDelete):
		return parseDelete(db, message)
	case strings.HasPrefix(message, kwCreate):
		return parseCreate(message)
	case strings.HasPrefix(message, kwDefine):
		return parseDefine(db, message)
	case strings.HasPrefix(message, kwAlter):
		return nil, qerrors.NewParseError("ALTER is not yet supported")
	case strings.HasPrefix(message, kwDrop):
		return nil, qerrors.NewParseError("DROP is not yet supported")
	default:
		return nil, qerrors.NewParseError("unknown command: " + message)
	}
}

func expectKeyword(input, keyword string) (string, error) {
	rest, ok := strings.CutPrefix(input, keyword)
	if !ok {
		return "", qerrors.NewSyntaxError(qerrors.UnknownKeyword, "expected "+keyword+" in: "+input)
	}
	trimmed := strings.TrimLeft(rest, " \t")
	if trimmed == rest && rest != "" {
		return "", qerrors.NewSyntaxError(qerrors.UnknownKeyword, "expected whitespace after "+keyword)
	}
	return trimmed, nil
}

func parseCreate(input string) (*Command, error) {
	rest, err := expectKeyword(input, kwCreate)
	if err != nil {
		return nil, err
	}
	name, _ := takeAlpha(rest)
	if name == "" {
		return nil, qerrors.NewParseError("could not parse database name: " + input)
	}
	return &Command{Kind: CmdCreate, Database: name}, nil
}

func parseSelect(db, input string) (*Command, error) {
	rest, err := expectKeyword(input, kwSelect)
	if err != nil {
		return nil, err
	}
	table, rest, err := extractTableNameSpace(rest)
	if err != nil {
		return nil, err
	}
	rest, err = expectKeyword(rest, "WHERE")
	if err != nil {
		return nil, err
	}
	filter, _, err := parseCondition(rest)
	if err != nil {
		return nil, qerrors.NewParseError("could not parse condition: " + err.Error())
	}
	return &Command{Kind: CmdSelect, Query: &Query{Table: table, Filter: filter}}, nil
}

func parseDelete(db, input string) (*Command, error) {
	rest, err := expectKeyword(input, "DELETE FROM")
	if err != nil {
		return nil, err
	}
	table, rest, err := extractTableNameSpace(rest)
	if err != nil {
		return nil, err
	}
	rest, err = expectKeyword(rest, "WHERE")
	if err != nil {
		return nil, err
	}
	filter, _, err := parseCondition(rest)
	if err != nil {
		return nil, qerrors.NewParseError("could not parse condition: " + err.Error())
	}
	return &Command{Kind: CmdDelete, Query: &Query{Table: table, Filter: filter}}, nil
}

func parseInsert(db, input string) (*Command, error) {
	rest, err := expectKeyword(input, "INSERT INTO")
	if err != nil {
		return nil, err
	}
	table, jsonStr, err := extractTableNameBody(rest)
	if err != nil {
		return nil, err
	}
	data, err := document.ParseJSONValue(jsonStr)
	if err != nil {
		return nil, qerrors.NewParseError("could not parse JSON: " + err.Error())
	}
	if data.Kind != document.KindObject {
		return nil, qerrors.NewParseError("expected object but found: " + jsonStr)
	}
	id, err := extractOrGenerateID(data)
	if err != nil {
		return nil, err
	}
	return &Command{
		Kind: CmdInsert,
		Record: document.Record{
			ObjectID: id,
			Table:    table,
			Data:     data,
			Active:   true,
		},
	}, nil
}

// parseUpdate parses "UPDATE <table> {json} WHERE <condition>", grounded
// on parser.rs's parse_update_command.
func parseUpdate(db, input string) (*Command, error) {
	rest, err := expectKeyword(input, kwUpdate)
	if err != nil {
		return nil, err
	}
	table, rest, err := extractTableNameSpace(rest)
	if err != nil {
		return nil, err
	}
	rest = strings.TrimLeft(rest, " \t")
	jsonStr, rest, err := extractBraceBody(rest)
	if err != nil {
		return nil, err
	}
	data, err := document.ParseJSONValue(jsonStr)
	if err != nil {
		return nil, qerrors.NewParseError("could not parse update json: " + err.Error())
	}
	rest = strings.TrimSpace(rest)
	rest, err = expectKeyword(rest, "WHERE")
	if err != nil {
		return nil, err
	}
	filter, _, err := parseCondition(rest)
	if err != nil {
		return nil, qerrors.NewParseError("could not parse condition: " + err.Error())
	}
	cmd := &Command{
		Kind: CmdUpdate,
		Record: document.Record{
			Table:  table,
			Data:   data,
			Active: true,
		},
		UpdateWhere: &Query{Table: table, Filter: filter},
	}
	return cmd, nil
}

// extractTableNameSpace parses an identifier followed by mandatory
// whitespace, as original_source's extract_select_table does.
func extractTableNameSpace(input string) (string, string, error) {
	input = strings.TrimLeft(input, " \t")
	name, rest := takeAlpha(input)
	if name == "" {
		return "", "", qerrors.NewParseError("could not parse table name: " + input)
	}
	if !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") && rest != "" {
		return "", "", qerrors.NewParseError("expected whitespace after table name: " + input)
	}
	return name, strings.TrimLeft(rest, " \t"), nil
}

// extractTableNameBody parses "<table> <json>" where json runs to the end
// of the message (INSERT has no trailing clause).
func extractTableNameBody(input string) (table string, body string, err error) {
	table, rest, err := extractTableNameSpace(input)
	if err != nil {
		return "", "", err
	}
	return table, strings.TrimSpace(rest), nil
}

// extractBraceBody extracts a "{...}" JSON object honoring nested braces
// and returns it together with whatever follows.
func extractBraceBody(input string) (string, string, error) {
	if !strings.HasPrefix(input, "{") {
		return "", "", qerrors.NewParseError("expected '{' to start JSON object: " + input)
	}
	depth := 0
	for i, r := range input {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[:i+1], input[i+1:], nil
			}
		}
	}
	return "", "", qerrors.NewParseError("unterminated JSON object: " + input)
}

// extractOrGenerateID mirrors original_source's get_id: the object's "id"
// member if present and a string, otherwise a fresh UUID v4.
func extractOrGenerateID(data document.Value) (string, error) {
	idVal, ok := data.Get("id")
	if !ok {
		return uuid.NewString(), nil
	}
	if idVal.Kind != document.KindString {
		return "", qerrors.NewSyntaxError(qerrors.InvalidValue, "expected string for id but found something else")
	}
	return idVal.Str, nil
}

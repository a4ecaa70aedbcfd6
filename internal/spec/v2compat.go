package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// repairV2Bodies rewrites Swagger 2 operations that openapi2conv rejects:
// several in: body parameters are merged into one object-typed body, and
// body parameters mixed with formData become formData fields of a
// multipart/form-data operation. The node tree is edited in place so key
// order survives the round trip. It reports whether anything changed.
func repairV2Bodies(data []byte) ([]byte, bool, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return data, false, err
	}
	if len(root.Content) == 0 {
		return data, false, nil
	}
	paths := mappingValue(root.Content[0], "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return data, false, nil
	}

	changed := false
	for i := 1; i < len(paths.Content); i += 2 {
		item := paths.Content[i]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			if _, ok := ParseMethod(item.Content[j].Value); !ok {
				continue
			}
			if repairOperation(item.Content[j+1]) {
				changed = true
			}
		}
	}
	if !changed {
		return data, false, nil
	}
	out, err := yaml.Marshal(&root)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func repairOperation(op *yaml.Node) bool {
	params := mappingValue(op, "parameters")
	if params == nil || params.Kind != yaml.SequenceNode {
		return false
	}
	var bodies []*yaml.Node
	hasFormData := false
	for _, p := range params.Content {
		switch strings.ToLower(scalarAt(p, "in")) {
		case "body":
			bodies = append(bodies, p)
		case "formdata":
			hasFormData = true
		}
	}

	switch {
	case len(bodies) > 0 && hasFormData:
		for _, p := range bodies {
			toFormData(p)
		}
		consumes := mappingValue(op, "consumes")
		if consumes == nil {
			consumes = &yaml.Node{Kind: yaml.SequenceNode}
			setMapping(op, "consumes", consumes)
		}
		for _, c := range consumes.Content {
			if c.Value == "multipart/form-data" {
				return true
			}
		}
		consumes.Content = append(consumes.Content, scalar("multipart/form-data"))
		return true

	case len(bodies) > 1:
		props := &yaml.Node{Kind: yaml.MappingNode}
		required := &yaml.Node{Kind: yaml.SequenceNode}
		rest := make([]*yaml.Node, 0, len(params.Content))
		for _, p := range params.Content {
			if !strings.EqualFold(scalarAt(p, "in"), "body") {
				rest = append(rest, p)
				continue
			}
			name := scalarAt(p, "name")
			if name == "" {
				name = "field"
			}
			s := mappingValue(p, "schema")
			if s == nil {
				s = &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar("type"), scalar("string")}}
			}
			props.Content = append(props.Content, scalar(name), s)
			if scalarAt(p, "required") == "true" {
				required.Content = append(required.Content, scalar(name))
			}
		}
		bodySchema := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			scalar("type"), scalar("object"),
			scalar("properties"), props,
		}}
		if len(required.Content) > 0 {
			bodySchema.Content = append(bodySchema.Content, scalar("required"), required)
		}
		merged := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
			scalar("in"), scalar("body"),
			scalar("name"), scalar("body"),
			scalar("schema"), bodySchema,
		}}
		params.Content = append([]*yaml.Node{merged}, rest...)
		return true
	}
	return false
}

// toFormData turns a body parameter into a formData field. Referenced
// object schemas cannot be form fields and degrade to string.
func toFormData(p *yaml.Node) {
	typ, format := "", ""
	var items *yaml.Node
	if s := mappingValue(p, "schema"); s != nil {
		typ, format = scalarAt(s, "type"), scalarAt(s, "format")
		items = mappingValue(s, "items")
	}
	if typ == "" || typ == "object" {
		typ = "string"
	}
	kept := []*yaml.Node{scalar("in"), scalar("formData")}
	for _, key := range []string{"name", "description", "required"} {
		if v := mappingValue(p, key); v != nil {
			kept = append(kept, scalar(key), v)
		}
	}
	kept = append(kept, scalar("type"), scalar(typ))
	if items != nil {
		kept = append(kept, scalar("items"), items)
	}
	if format != "" {
		kept = append(kept, scalar("format"), scalar(format))
	}
	p.Content = kept
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func setMapping(n *yaml.Node, key string, v *yaml.Node) {
	n.Content = append(n.Content, scalar(key), v)
}

func scalarAt(n *yaml.Node, key string) string {
	if v := mappingValue(n, key); v != nil && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

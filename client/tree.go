package client

import (
	"sort"
	"strconv"
	"strings"

	"libra/models"
	"libra/utils"
)

// TaskNode is a task with its direct children attached for display.
type TaskNode struct {
	models.Task
	Children []*TaskNode `json:"children,omitempty"`
}

// BuildTree rebuilds the display hierarchy from flat rows by grouping on
// parent_id. Top-level entries are rows without a parent; each child list
// is sorted descending by weight, stable on the fetch order.
func BuildTree(tasks []models.Task) []*TaskNode {
	nodes := make(map[string]*TaskNode, len(tasks))
	for i := range tasks {
		nodes[tasks[i].ID] = &TaskNode{Task: tasks[i]}
	}

	var roots []*TaskNode
	for i := range tasks {
		node := nodes[tasks[i].ID]
		if tasks[i].ParentID == nil || *tasks[i].ParentID == "" {
			roots = append(roots, node)
			continue
		}
		if parent, ok := nodes[*tasks[i].ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
		// Rows whose parent is not in the fetched set (orphans from the
		// one-level cascade) are not displayed.
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}
	return roots
}

func sortNodes(nodes []*TaskNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Weight > nodes[j].Weight
	})
}

// RenderMessage produces the display text for a message. Chat messages
// pass through; system messages look up their translation key in the
// viewer's locale table and substitute the stored props positionally
// ({0}, {1}, ...). Unknown keys fall back to the raw key.
func RenderMessage(msg models.Message, locale map[string]string) string {
	if !msg.IsSystem() {
		return msg.Content
	}

	template, ok := locale[msg.Content]
	if !ok {
		return msg.Content
	}

	out := template
	for i, prop := range utils.SplitProps(msg.MessageProps) {
		placeholder := "{" + strconv.Itoa(i) + "}"
		out = strings.ReplaceAll(out, placeholder, prop)
	}
	return out
}

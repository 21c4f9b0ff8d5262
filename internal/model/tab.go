// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// TAB TYPE
// =============================================================================

// TabType classifies the destination a command is typed into.
type TabType string

const (
	TabChannel TabType = "channel"
	TabQuery   TabType = "query"
	TabServer  TabType = "server"
	TabNotice  TabType = "notice"
)

// String returns the string representation of the tab type.
func (t TabType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known tab types.
func (t TabType) Valid() bool {
	switch t {
	case TabChannel, TabQuery, TabServer, TabNotice:
		return true
	}
	return false
}

// ParseTabType converts user input into a TabType.
// "dm" and "pm" are accepted as synonyms for query.
func ParseTabType(s string) (TabType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "channel", "chan":
		return TabChannel, nil
	case "query", "dm", "pm":
		return TabQuery, nil
	case "server", "status", "":
		return TabServer, nil
	case "notice", "notices":
		return TabNotice, nil
	}
	return "", fmt.Errorf("unknown tab type %q", s)
}

// =============================================================================
// TAB
// =============================================================================

// Tab identifies where a command was typed.
type Tab struct {
	NetworkID string  `json:"network_id"`
	Type      TabType `json:"type"`
	Name      string  `json:"name"`
}

// ChannelTab returns a channel tab.
func ChannelTab(networkID, channel string) Tab {
	return Tab{NetworkID: networkID, Type: TabChannel, Name: channel}
}

// QueryTab returns a direct conversation tab with nick.
func QueryTab(networkID, nick string) Tab {
	return Tab{NetworkID: networkID, Type: TabQuery, Name: nick}
}

// ServerTab returns the server (status) tab of a network.
func ServerTab(networkID string) Tab {
	return Tab{NetworkID: networkID, Type: TabServer, Name: networkID}
}

// IsChannel reports whether the tab is a channel.
func (t Tab) IsChannel() bool { return t.Type == TabChannel }

// IsQuery reports whether the tab is a direct conversation.
func (t Tab) IsQuery() bool { return t.Type == TabQuery }

// IsServerLike reports whether the tab is a server or notice tab.
func (t Tab) IsServerLike() bool { return t.Type == TabServer || t.Type == TabNotice }

// String renders the tab as network/name.
func (t Tab) String() string {
	name := t.Name
	if name == "" {
		name = string(t.Type)
	}
	if t.NetworkID == "" {
		return name
	}
	return t.NetworkID + "/" + name
}

// InferTab guesses the tab type from a target name: '#' and '&' prefixes are
// channels, an empty name is the server tab, anything else is a query.
func InferTab(networkID, name string) Tab {
	switch {
	case name == "":
		return ServerTab(networkID)
	case strings.HasPrefix(name, "#") || strings.HasPrefix(name, "&"):
		return ChannelTab(networkID, name)
	default:
		return QueryTab(networkID, name)
	}
}

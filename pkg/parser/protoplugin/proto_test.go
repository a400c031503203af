// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package protoplugin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser/protoplugin"
)

const sample = `syntax = "proto3";

package acme.users;

// User lookup service.
service UserService {
  rpc GetUser(GetUserRequest) returns (User);
  rpc ListUsers(ListUsersRequest) returns (stream User) {
    option idempotency_level = NO_SIDE_EFFECTS;
  }
}

message GetUserRequest {
  string user_id = 1;
}

message User {
  string user_id = 1;
  string email = 2;
}

enum Role {
  ROLE_UNSPECIFIED = 0;
  ROLE_ADMIN = 1;
}
`

func TestParse_ExtractsServiceRPCsAndMessages(t *testing.T) {
	p := protoplugin.New()
	result, err := p.Parse("repo1", "api/users.proto", []byte(sample))
	require.NoError(t, err)
	require.Equal(t, "acme.users", result.PackageOrModule)

	byFQN := make(map[string]ir.Node)
	for _, n := range result.Nodes {
		byFQN[n.FQN] = n
	}

	svc, ok := byFQN["acme.users.UserService"]
	require.True(t, ok, "expected service node")
	require.Equal(t, ir.NodeClass, svc.Kind)
	require.Equal(t, "service", svc.Attrs["proto_kind"])

	get, ok := byFQN["acme.users.UserService.GetUser"]
	require.True(t, ok, "expected rpc node")
	require.Equal(t, ir.NodeMethod, get.Kind)
	require.Equal(t, svc.ID, get.ParentID)
	require.Contains(t, get.Attrs["signature"], "rpc GetUser(GetUserRequest)")

	_, ok = byFQN["acme.users.UserService.ListUsers"]
	require.True(t, ok, "expected rpc with options block")

	msg, ok := byFQN["acme.users.User"]
	require.True(t, ok, "expected message node")
	require.Equal(t, "message", msg.Attrs["proto_kind"])

	role, ok := byFQN["acme.users.Role"]
	require.True(t, ok, "expected enum node")
	require.Equal(t, "enum", role.Attrs["proto_kind"])

	// Service span closes at the brace, not at the header line.
	require.Greater(t, svc.Span.End.Line, svc.Span.Start.Line)
}

func TestParse_ContainmentEdges(t *testing.T) {
	p := protoplugin.New()
	result, err := p.Parse("repo1", "api/users.proto", []byte(sample))
	require.NoError(t, err)

	contains := 0
	for _, e := range result.Edges {
		require.Equal(t, ir.EdgeContains, e.Kind)
		contains++
	}
	// service + 2 rpcs + 2 messages + 1 enum
	require.Equal(t, 6, contains)
}

func TestIsBuiltinType(t *testing.T) {
	p := protoplugin.New()
	require.True(t, p.IsBuiltinType("string"))
	require.True(t, p.IsBuiltinType("sfixed64"))
	require.False(t, p.IsBuiltinType("User"))
}

package api

import (
	"context"
	"testing"
)

func TestIdentityClient_NewIdentityClient(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantErr    bool
	}{
		{
			name:       "empty config path",
			configPath: "",
			wantErr:    true, // Default config may not be valid without proper SPIFFE setup
		},
		{
			name:       "invalid config path",
			configPath: "/nonexistent/path",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewIdentityClient(tt.configPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewIdentityClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && client == nil {
				t.Error("NewIdentityClient() returned nil client")
			}
		})
	}
}

func TestIdentityClient_Connect(t *testing.T) {
	// Note: This is a basic test structure. In production, you would use mocks
	// and dependency injection to test without actual SPIFFE infrastructure.

	tests := []struct {
		name        string
		serviceName string
		address     string
		wantErr     bool
	}{
		{
			name:        "nil context",
			serviceName: "test-service",
			address:     "localhost:8080",
			wantErr:     true,
		},
		{
			name:        "empty service name",
			serviceName: "",
			address:     "localhost:8080",
			wantErr:     true,
		},
		{
			name:        "empty address",
			serviceName: "test-service",
			address:     "",
			wantErr:     true,
		},
		{
			name:        "invalid address format",
			serviceName: "test-service",
			address:     "invalid-address",
			wantErr:     true,
		},
	}

	// Create a client for testing (this may fail without proper SPIFFE setup)
	client, err := NewIdentityClient("")
	if err != nil {
		t.Skip("Skipping Connect tests - could not create client:", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.name == "nil context" {
				ctx = nil
			}

			_, err := client.Connect(ctx, tt.serviceName, tt.address)
			if (err != nil) != tt.wantErr {
				t.Errorf("Connect() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIdentityClient_Close(t *testing.T) {
	client, err := NewIdentityClient("")
	if err != nil {
		t.Skip("Skipping Close test - could not create client:", err)
	}

	// Close should not return an error
	if err := client.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}

	// Multiple closes should be safe
	if err := client.Close(); err != nil {
		t.Errorf("Second Close() returned error: %v", err)
	}
}

func TestClientConnection_Close(t *testing.T) {
	// Test with nil connection
	conn := &ClientConnection{conn: nil}
	if err := conn.Close(); err != nil {
		t.Errorf("Close() with nil connection returned error: %v", err)
	}
}

func TestClientConnection_GetClientConnection(t *testing.T) {
	// Test with nil connection
	conn := &ClientConnection{conn: nil}
	if result := conn.GetClientConnection(); result != nil {
		t.Errorf("GetClientConnection() with nil connection should return nil, got %v", result)
	}
}

package models

import "fmt"

// ValidationError rejects an ingestion payload before it reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StoreError wraps a persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// DeliveryError is returned by notifiers when a message could not be delivered.
type DeliveryError struct {
	Channel    string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery failed: status %d: %v", e.Channel, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// CommandSourceError is a transient failure while polling for operator commands.
type CommandSourceError struct {
	Err error
}

func (e *CommandSourceError) Error() string {
	return fmt.Sprintf("command source: %v", e.Err)
}

func (e *CommandSourceError) Unwrap() error {
	return e.Err
}

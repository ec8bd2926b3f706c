package aegis

import (
	"github.com/reguflow/aegis/engine"
	"github.com/reguflow/aegis/fraud"
	"github.com/reguflow/aegis/oracle"
	"github.com/reguflow/aegis/recordstore"
)

type Engine = engine.Engine
type SubmitResult = engine.SubmitResult
type Outcome = engine.Outcome
type FallbackPolicy = engine.FallbackPolicy
type PolicyOracle = engine.PolicyOracle

type Agent = recordstore.Agent
type Ticket = recordstore.Ticket
type ChatMessage = recordstore.ChatMessage
type Customer = recordstore.Customer
type AgentStore = recordstore.AgentStore
type CustomerStore = recordstore.CustomerStore

type Classification = oracle.Classification
type Severity = oracle.Severity

type ThreatCluster = fraud.ThreatCluster

var (
	OutcomeApproved  = engine.OutcomeApproved
	OutcomeViolation = engine.OutcomeViolation
	OutcomeLocked    = engine.OutcomeLocked

	FailOpen   = engine.FailOpen
	FailClosed = engine.FailClosed

	SeverityHigh = oracle.SeverityHigh
	SeverityLow  = oracle.SeverityLow
	SeverityNone = oracle.SeverityNone

	AgentActive = recordstore.AgentActive
	AgentLocked = recordstore.AgentLocked

	CustomerActive  = recordstore.CustomerActive
	CustomerFlagged = recordstore.CustomerFlagged
	CustomerBanned  = recordstore.CustomerBanned

	ErrNotFound = recordstore.ErrNotFound
)

package ai

// callsSchemaDescription describes the ClickHouse schema used for prompting.
//
// Keep in sync with the graduation_calls table definition in init.sql.
const callsSchemaDescription = `
Database: gradwatch
Table: graduation_calls

Columns:
  - mint       String    -- Token mint address (base-58)
  - symbol     String    -- Token ticker symbol
  - score      Float64   -- Confidence score 0-10 at the time of the call
  - chat_id    Int64     -- Telegram chat the call was posted to
  - sent_at    DateTime  -- When the call was dispatched (UTC)
  - delivered  UInt8     -- 1 if Telegram accepted the message

Notes:
  - One row per (candidate, chat) dispatch attempt; the same mint appears once
    per chat it was posted to.
  - Count distinct mints for "how many tokens were called".
  - Time filters should use sent_at, e.g. sent_at >= now() - INTERVAL 24 HOUR.
`

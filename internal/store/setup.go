package store

import "fmt"

// SetupSQL returns the script that creates the records and audit tables.
// Operators paste it into their database when the store reports a missing table.
func SetupSQL(recordsTable, auditTable string) string {
	if recordsTable == "" {
		recordsTable = RecordsTable
	}
	if auditTable == "" {
		auditTable = AuditTable
	}
	return fmt.Sprintf(`create table if not exists %[1]s (
  id uuid default gen_random_uuid() primary key,
  created_at timestamp with time zone default timezone('utc'::text, now()) not null,
  "recordType" text,
  "startTime" text,
  "endTime" text,
  subject text,
  task text,
  sr text,
  "analystName" text,
  "locationName" text,
  "isEscalated" text,
  "bankAnalystName" text,
  "problemDescription" text,
  "actionTaken" text,
  "validCall" text,
  "trainingProvided" text,
  "usedAcfs" text,
  "customerComplaint" text,
  "isValidated" text,
  "isActionPlanEffective" text,
  "wasPartChanged" text,
  "partChangedDescription" text,
  "usedDiagValidation" text,
  "usedTestCard" text,
  "sicOptions" text[],
  "customerName" text,
  "customerBadge" text,
  "escalationDate" text,
  "technicianName" text,
  status text,
  "escalationValidation" text
);

create index if not exists %[1]s_created_at_idx on %[1]s (created_at desc);

create table if not exists %[2]s (
  id uuid default gen_random_uuid() primary key,
  created_at timestamp with time zone default now() not null,
  action text not null,
  severity text not null,
  record_id text,
  record_type text,
  field text,
  old_value text,
  new_value text,
  subject text,
  role text,
  ip_address text,
  user_agent text,
  rows_affected integer
);`, recordsTable, auditTable)
}

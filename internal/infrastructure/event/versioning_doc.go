package event

/*
Event Schema Versioning
=======================

Outbox payloads outlive the code that wrote them. A row parked in
outbox_events while a consumer was down may be dispatched weeks later,
after the event struct has changed shape. The versioning layer keeps
those old payloads readable.

How it works
------------

Every event embeds shared.BaseDomainEvent, which serializes a
schema_version field (omitted when 1). ExtractVersion reads it back;
payloads without the field are version 1.

An event type that has changed shape registers through RegisterVersioned
with one struct per supported version and a chain of EventUpgraders.
Each upgrader transforms the raw JSON map from version N to N+1 and must
be sequential; the registry rejects gaps. VersionedSerializer then
upgrades stale payloads transparently during Deserialize, so handlers
only ever see the current struct.

Current chains
--------------

achat.statut_change is at version 2. Version 1 carried a single "statut"
field; version 2 splits it into "ancien_statut" and "nouveau_statut".
The v1->v2 upgrader lives in event_registry.go next to
RegisterEventUpgraders, which layers the versioned registration over
RegisterAllEvents at startup.

Evolving a schema
-----------------

1. Bump the SchemaVersion constant next to the event struct and pass it
   to shared.NewVersionedBaseDomainEvent in the constructor.
2. Write the upgrader with NewBaseEventUpgrader(from, to, transform).
   Transforms must be deterministic and tolerate missing fields.
3. Register the chain in RegisterEventUpgraders.
4. Deploy, then rewrite parked rows with `migrate events-upgrade`.

Rewriting stored payloads
-------------------------

Upgrading on read is enough for dispatch, but old upgraders can only be
retired once no stale payload remains. OutboxMigrator (migration.go)
rewrites outbox rows in place: `migrate events-status` reports the
version spread per event type, `migrate events-upgrade` runs the chains.
Rows that fail to upgrade are reported and left untouched.
*/

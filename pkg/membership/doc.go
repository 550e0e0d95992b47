/*
Package membership encodes the notifications that tell the routing tier a storage node joined, departed, or was
replaced.  A notification is a single line of colon-delimited fields, parsed positionally by the routing tier:

	<event>:<tier>:<public-ip>:<private-ip>:<reserved>:<virtual-id>

for example

	join:MEMORY:10.0.0.1:192.168.0.1:0:7

The reserved field is always "0".  Its meaning belongs to the routing tier and it must be sent as-is.

The field count and order are version 1 of the format (WireVersion).  Any change to them requires a new version,
since older routers would silently misread the fields.
*/
package membership

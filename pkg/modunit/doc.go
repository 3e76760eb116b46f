// SPDX-License-Identifier: MPL-2.0

// Package modunit defines the mod package model shared by the scanner, the
// resolver and the toggler, together with the parsers for the two on-disk
// descriptor files every package carries.
//
// A package directory is identified by filelist.xml. Its root element carries
// the package name, an optional Steam Workshop id and version attributes:
//
//	<contentpackage name="Better Items" steamworkshopid="2701251094" modversion="1.2"/>
//
// metadata.xml is optional and holds settings, free-form meta information and
// dependency declarations:
//
//	<metadata>
//	  <settings><setting name="IgnoreOverrideCheck" value="true"/></settings>
//	  <meta><author>someone</author><warning>first line
//	second line</warning></meta>
//	  <dependencies>
//	    <requirement name="Lua For Barotrauma" steamID="2559634234"/>
//	    <conflict name="Old Items" steamID="1111" level="warning"/>
//	  </dependencies>
//	</metadata>
package modunit
